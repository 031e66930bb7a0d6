package server

import (
	"sync"

	"candle-relay/src/candle"
)

// -----------------------------------------------------------------------------
// Subscription Registry
// -----------------------------------------------------------------------------

// Registry maps (symbol, resolution) keys to the clients watching them.
// It owns all Subscription records: once Unsubscribe or RemoveClient
// returns, later SubscribersOf calls no longer yield that client, so the
// dispatcher cannot start a new send to it.
type Registry struct {
	mu       sync.RWMutex
	subs     map[candle.Key]map[*Client]struct{}
	byClient map[*Client]map[candle.Key]struct{}
}

// -----------------------------------------------------------------------------

func NewRegistry() *Registry {
	return &Registry{
		subs:     make(map[candle.Key]map[*Client]struct{}),
		byClient: make(map[*Client]map[candle.Key]struct{}),
	}
}

// -----------------------------------------------------------------------------

// Subscribe registers the pair. Returns false for a duplicate, in which
// case the caller must not retain the key again.
func (r *Registry) Subscribe(c *Client, key candle.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := r.subs[key]
	if clients == nil {
		clients = make(map[*Client]struct{})
		r.subs[key] = clients
	}
	if _, dup := clients[c]; dup {
		return false
	}
	clients[c] = struct{}{}

	keys := r.byClient[c]
	if keys == nil {
		keys = make(map[candle.Key]struct{})
		r.byClient[c] = keys
	}
	keys[key] = struct{}{}
	return true
}

// -----------------------------------------------------------------------------

// Unsubscribe removes one subscription. keyEmpty reports that the key
// has no subscribers left.
func (r *Registry) Unsubscribe(c *Client, key candle.Key) (removed bool, keyEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := r.subs[key]
	if clients == nil {
		return false, false
	}
	if _, ok := clients[c]; !ok {
		return false, false
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(r.subs, key)
		keyEmpty = true
	}

	if keys := r.byClient[c]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(r.byClient, c)
		}
	}
	return true, keyEmpty
}

// -----------------------------------------------------------------------------

// RemoveClient drops every subscription owned by the client (disconnect
// path) and returns the keys it held, one entry per subscription, so
// the caller can release the matching engine references.
func (r *Registry) RemoveClient(c *Client) []candle.Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	var held []candle.Key
	for key := range r.byClient[c] {
		held = append(held, key)
		clients := r.subs[key]
		delete(clients, c)
		if len(clients) == 0 {
			delete(r.subs, key)
		}
	}
	delete(r.byClient, c)
	return held
}

// -----------------------------------------------------------------------------

// SubscribersOf returns a snapshot of the key's subscribers. A send
// already started from an older snapshot may still arrive after removal;
// no stronger guarantee is offered.
func (r *Registry) SubscribersOf(key candle.Key) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := r.subs[key]
	if len(clients) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(clients))
	for c := range clients {
		out = append(out, c)
	}
	return out
}

// -----------------------------------------------------------------------------

// Counts returns the total subscription count and a per-symbol breakdown.
func (r *Registry) Counts() (int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	bySymbol := make(map[string]int)
	for key, clients := range r.subs {
		total += len(clients)
		bySymbol[key.Symbol] += len(clients)
	}
	return total, bySymbol
}
