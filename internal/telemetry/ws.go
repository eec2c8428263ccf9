package telemetry

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Keepalive timings follow gorilla/websocket's own documented chat-example
// idiom: the server pings at an interval comfortably inside the read
// deadline, and every inbound frame (including pongs) pushes that deadline
// back out.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// This is a read-only telemetry feed behind an already-authenticated
	// observability surface (see cmd/wrtd), not a browser-facing API with
	// cookies to protect — cross-origin upgrade requests are expected from
	// any dashboard host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a websocket connection and streams
// every Event published to the hub from that point on, until the peer
// disconnects. The wire protocol is server-to-client only: the client
// sends nothing but pings/pongs/close frames.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("telemetry upgrade failed")
		}
		return
	}

	c := h.register()
	go h.writePump(conn, c)
	go h.readPump(conn, c)
}

// writePump is the sole writer on conn: gorilla/websocket connections
// require all writes to happen from one goroutine, so the read side
// (readPump) never writes anything but control frames through the library's
// own internal locking.
func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames purely to service the library's pong/close
// control-frame handling and to notice the peer going away; it discards any
// actual message payload since the protocol carries no client-to-server
// messages.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unregister(c)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
