package server

import (
	"errors"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Connection Pool
// -----------------------------------------------------------------------------

// ErrCapacityExceeded is returned when the pool is at its hard cap. The
// client gets an immediate policy-violation close, no retry-after hint.
var ErrCapacityExceeded = errors.New("connection capacity exceeded")

// connMeta is the heartbeat bookkeeping attached to each live
// connection; removed explicitly on close, never left to the collector.
type connMeta struct {
	isAlive    bool
	lastPingAt time.Time
}

// Pool enforces the admission cap and tracks liveness flags for the
// heartbeat. Mutated by both the connect/disconnect path and the
// heartbeat path, so every access goes through the mutex.
type Pool struct {
	mu       sync.Mutex
	capacity int
	conns    map[*Client]*connMeta
}

// -----------------------------------------------------------------------------

func NewPool(capacity int) *Pool {
	return &Pool{
		capacity: capacity,
		conns:    make(map[*Client]*connMeta),
	}
}

// -----------------------------------------------------------------------------

// Admit registers a new connection, refusing it at the cap.
func (p *Pool) Admit(c *Client) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.conns) >= p.capacity {
		return ErrCapacityExceeded
	}
	p.conns[c] = &connMeta{isAlive: true, lastPingAt: time.Now()}
	return nil
}

// -----------------------------------------------------------------------------

// Remove deletes the connection's metadata. Safe to call twice.
func (p *Pool) Remove(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, c)
}

// -----------------------------------------------------------------------------

// MarkAlive records a liveness response (pong or any client message).
func (p *Pool) MarkAlive(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m := p.conns[c]; m != nil {
		m.isAlive = true
		m.lastPingAt = time.Now()
	}
}

// -----------------------------------------------------------------------------

// CheckAndClearAlive returns the connection's liveness flag and lowers
// it for the next heartbeat round. A connection that never responds is
// therefore reaped within two heartbeat intervals.
func (p *Pool) CheckAndClearAlive(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.conns[c]
	if m == nil {
		return false
	}
	alive := m.isAlive
	m.isAlive = false
	return alive
}

// -----------------------------------------------------------------------------

// Count returns the number of admitted connections.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}
