package gateway

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens at IDENTIFY, not at upgrade.
		return true
	},
}

// HandleWebSocket handles GET /gateway: it upgrades the request, sends
// HELLO, and starts the read/write pumps. The connection stays unregistered
// until it identifies.
func (m *Manager) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return err
	}

	wc := newConnection(uuid.NewString(), conn, m)

	wc.SendPayload(GatewayPayload{
		Op:   OpHello,
		Data: mustMarshal(HelloData{HeartbeatInterval: int(heartbeatInterval.Milliseconds())}),
	})

	go wc.writePump()
	go wc.readPump()
	return nil
}
