package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"pare/logger"
	"pare/middleware"
)

const (
	writeWait  = 10 * time.Second // Time allowed to write a message
	pingPeriod = 15 * time.Second // Send pings at this interval
)

// EventsUpgrade authenticates a websocket upgrade. Browsers cannot set
// headers on websocket requests, so the token comes in the query string.
func (h *Handler) EventsUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	claims, err := middleware.ParseToken(h.secret, c.Query("token"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}
	user, err := middleware.Authorize(c.UserContext(), h.users, claims)
	if err != nil {
		return err
	}

	c.Locals("userId", user.ID)
	return c.Next()
}

// EventsStream pushes the caller's module events until the client leaves.
func (h *Handler) EventsStream(conn *websocket.Conn) {
	uid, _ := conn.Locals("userId").(uint)

	sub := h.events.Subscribe(uid)
	defer sub.Close()
	logger.Debug("event stream opened", "user", uid)

	// The client sends nothing we act on; reading detects disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("event stream write failed", "user", uid, "err", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			logger.Debug("event stream closed", "user", uid)
			return
		}
	}
}
