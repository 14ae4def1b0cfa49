package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"example.com/crew-client/internal/wire"
)

const writeWait = 10 * time.Second

// wsConn wraps a gorilla connection. Send may be called from any goroutine;
// Read must stay on a single goroutine (the session manager's event loop).
type wsConn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Send(env wire.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(env)
}

func (c *wsConn) Read() (wire.Envelope, error) {
	var env wire.Envelope
	if err := c.ws.ReadJSON(&env); err != nil {
		return wire.Envelope{}, err
	}
	return env, nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
