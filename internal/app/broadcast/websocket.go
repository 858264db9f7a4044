package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Overlay and dashboard clients connect from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient wraps a websocket connection as a hub Client. Writes are
// serialized; gorilla/websocket allows only one concurrent writer.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send writes one text frame with a write deadline.
func (c *wsClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ServeWS upgrades the request and subscribes the connection to the hub.
// The connection stays subscribed until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("broadcast: websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn}
	id := h.Subscribe(client)
	zlog.Debug().Msgf("broadcast: client connected: id=%s remote=%s", id, conn.RemoteAddr())

	// Drain inbound frames to detect disconnect; clients never send
	// meaningful data on this socket.
	go func() {
		defer func() {
			h.Unsubscribe(id)
			_ = conn.Close()
			zlog.Debug().Msgf("broadcast: client disconnected: id=%s", id)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
