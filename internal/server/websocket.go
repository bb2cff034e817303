package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"keyoverlay/internal/broadcast"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     allowOrigin,
}

// client is one connected overlay
type client struct {
	hub  *broadcast.Hub
	conn *websocket.Conn
	sub  *broadcast.Subscriber
	ip   string
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "server").Err(err).Str("remote", r.RemoteAddr).Msg("Failed to upgrade connection")
		return
	}

	c := &client{
		hub:  s.hub,
		conn: conn,
		sub:  s.hub.Register(s.backend.Greeting()...),
		ip:   r.RemoteAddr,
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for the peer going away; overlays send nothing we
// act on.
func (c *client) readPump() {
	defer func() {
		c.hub.Unregister(c.sub.ID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Str("component", "server").Err(err).Str("remote", c.ip).Msg("Read error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	messages := c.sub.Messages()
	for {
		select {
		case message, ok := <-messages:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
