package handler

import (
	"net/http"

	"queuedesk/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origin checks are delegated to the CORS layer; display boards
	// and staff terminals connect from configured origins only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientSendBuffer bounds the per-observer outbound queue. A display board
// that stops reading gets dropped once the buffer fills, it never backs up
// the mutation path.
const clientSendBuffer = 64

// WebSocket upgrades the connection and hands it to the hub. Clients send
// {"action":"subscribe","topic":"queue"} frames and receive a snapshot event
// followed by deltas.
func WebSocket(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		client := realtime.NewClient(uuid.NewString(), clientSendBuffer)
		realtime.ServeConn(hub, conn, client)
	}
}
