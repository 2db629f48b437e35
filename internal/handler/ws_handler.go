package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"qualistock/internal/ws"
)

// RequireUpgrade rejects plain HTTP requests to the websocket endpoint.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Live streams hub events to the connection until the client goes away.
// GET /ws
func Live(hub *ws.Hub) fiber.Handler {
	return websocket.New(hub.Serve)
}
