package websocket

import (
	"ai-interview-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers a notification socket and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, log logger.ILogger) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Send: make(chan []byte, 256), logger: log}
	if !client.Hub.Register(client) {
		_ = c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
