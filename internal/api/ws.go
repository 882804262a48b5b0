package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard origins are enforced at the gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AlertFeed upgrades the connection and streams newly created alerts to the
// reviewer dashboard until the client disconnects.
func (h *Handler) AlertFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	h.svc.AddWebSocketConnection(conn)
	defer func() {
		h.svc.RemoveWebSocketConnection(conn)
		_ = conn.Close()
	}()

	// Drain control frames; the feed is write-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
