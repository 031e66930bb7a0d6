package server

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 4096 // client commands are tiny JSON objects
)

// -----------------------------------------------------------------------------
// Connection states
// -----------------------------------------------------------------------------

const (
	StateConnecting int32 = iota
	StateOpen
	StateClosing
	StateClosed
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	id     string
	server *Server
	conn   *websocket.Conn
	send   chan []byte
	state  atomic.Int32
}

// -----------------------------------------------------------------------------

func (c *Client) State() int32 {
	return c.state.Load()
}

func (c *Client) setState(s int32) {
	c.state.Store(s)
}

// -----------------------------------------------------------------------------

// enqueue hands a serialized message to the write pump without ever
// blocking the caller. A full buffer means the client cannot keep up;
// it is disconnected so it reconnects and replays history instead of
// silently missing bars.
func (c *Client) enqueue(msg []byte) {
	if c.State() != StateOpen {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.server.Logger.Warning("Client %s too slow, disconnecting", c.id)
		c.terminate()
	}
}

// -----------------------------------------------------------------------------

// terminate forces the connection down. The read pump unblocks on the
// closed socket and runs the full cleanup exactly once.
func (c *Client) terminate() {
	if !c.state.CompareAndSwap(StateOpen, StateClosing) {
		return
	}
	c.conn.Close()
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Acts as the watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.server.dropClient(c)
		c.conn.Close()
		c.setState(StateClosed)
		c.server.Logger.Info("Client %s disconnected", c.id)
	}()

	pongWait := 2 * c.server.heartbeat

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.server.pool.MarkAlive(c)
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		// Any client-originated message counts as a keepalive
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.server.pool.MarkAlive(c)
		c.server.handleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client and drives the heartbeat
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(c.server.heartbeat)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.Logger.Debug("Write error for %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			// Probe round: a connection that missed the previous probe is
			// half-open and gets reaped here.
			if !c.server.pool.CheckAndClearAlive(c) {
				c.server.Logger.Info("Client %s failed heartbeat, terminating", c.id)
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
