// utils/http.go - JSON response helpers for Fiber handlers
package utils

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"pare/logger"
)

// JSONSuccess sends {"success": true, ...}. A fiber.Map is merged into the
// envelope; anything else is sent under "data".
func JSONSuccess(c *fiber.Ctx, data interface{}) error {
	return JSONStatus(c, fiber.StatusOK, data)
}

// Created is JSONSuccess with 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return JSONStatus(c, fiber.StatusCreated, data)
}

func JSONStatus(c *fiber.Ctx, status int, data interface{}) error {
	response := fiber.Map{"success": true}

	if dataMap, ok := data.(fiber.Map); ok {
		for k, v := range dataMap {
			response[k] = v
		}
	} else if data != nil {
		response["data"] = data
	}

	return c.Status(status).JSON(response)
}

// JSONError sends {"success": false, "error": message}.
func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// PageParams reads page and limit query parameters. limit is clamped to max.
func PageParams(c *fiber.Ctx, defaultLimit, max int) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > max {
		limit = max
	}
	return page, limit
}

// ErrorHandler renders errors returned by handlers in the JSON envelope. In
// production unexpected errors are not exposed.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		} else {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
			if !production {
				message = err.Error()
			}
		}

		if production && code == fiber.StatusInternalServerError {
			message = "An error occurred. Please try again later."
		}

		return JSONError(c, code, message)
	}
}
