package signal

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var ErrBackpressure = errors.New("backpressure")

// wsConn wraps one client connection with a buffered outbound queue.
// The write pump is the only goroutine touching the socket for writes.
type wsConn struct {
	conn    *websocket.Conn
	send    chan []byte
	workers *sessionWorkers

	mu     sync.RWMutex
	closed bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		conn:    ws,
		send:    make(chan []byte, 32),
		workers: newSessionWorkers(),
	}
}

// TrySend enqueues a frame without blocking; a full queue drops it.
func (c *wsConn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
