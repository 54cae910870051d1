package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// ServeConn runs the read and write pumps for one websocket observer until
// the connection drops. It blocks; callers run it from the HTTP handler
// goroutine after the upgrade.
func ServeConn(hub *Hub, conn *websocket.Conn, client *Client) {
	hub.Register(client)
	defer func() {
		hub.Unregister(client)
		_ = conn.Close()
	}()

	go writePump(conn, client)
	readPump(hub, conn, client)
}

// readPump consumes control frames (subscribe/unsubscribe) from the client.
func readPump(hub *Hub, conn *websocket.Conn, client *Client) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client", client.ID).Msg("realtime: read error")
			}
			return
		}
		msg, ok := ParseSubscribe(data)
		if !ok {
			continue
		}
		switch msg.Action {
		case "subscribe":
			hub.Subscribe(context.Background(), client, Topic(msg.Topic))
		case "unsubscribe":
			hub.Unsubscribe(client, Topic(msg.Topic))
		}
	}
}

// writePump flushes the send channel to the socket and keeps the connection
// alive with pings.
func writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
