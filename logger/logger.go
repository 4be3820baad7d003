package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var l = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "pare"})

// Config holds logger configuration
type Config struct {
	Level string
	// File enables a rotating log file in addition to stderr.
	File string
	JSON bool
}

// Init replaces the package logger.
func Init(cfg Config) error {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return err
		}
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}

	opts := log.Options{
		ReportTimestamp: true,
		ReportCaller:    level == log.DebugLevel,
		Level:           level,
		Prefix:          "pare",
	}
	if cfg.JSON {
		opts.Formatter = log.JSONFormatter
	}

	l = log.NewWithOptions(w, opts)
	return nil
}

// L returns the package logger.
func L() *log.Logger {
	return l
}

func Debug(msg string, keyvals ...interface{}) {
	l.Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	l.Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	l.Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	l.Error(msg, keyvals...)
}

// Fatal logs and exits the process.
func Fatal(msg string, keyvals ...interface{}) {
	l.Fatal(msg, keyvals...)
	os.Exit(1)
}
