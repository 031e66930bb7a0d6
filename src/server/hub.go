package server

import (
	"encoding/json"

	"candle-relay/src/candle"
	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// Broadcast Dispatcher
// -----------------------------------------------------------------------------

// Fanout serializes an engine event once and best-effort delivers it to
// every open subscriber of the event's key. Send failures affect only
// the failing client; the rest of the fan-out proceeds.
func (s *Server) Fanout(ev candle.Event) {
	var msg models.MBarMessage
	switch e := ev.(type) {
	case candle.BarOpened:
		msg = models.MBarMessage{
			Type:       models.MsgBarNew,
			Symbol:     e.Key.Symbol,
			Resolution: string(e.Key.Resolution),
			Bar:        e.Bar,
		}
	case candle.BarUpdated:
		msg = models.MBarMessage{
			Type:       models.MsgBarUpdate,
			Symbol:     e.Key.Symbol,
			Resolution: string(e.Key.Resolution),
			Bar:        e.Bar,
		}
	default:
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.Logger.Error("Failed to serialize %s event: %v", msg.Type, err)
		return
	}

	for _, c := range s.registry.SubscribersOf(ev.EventKey()) {
		c.enqueue(payload)
	}
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// handleClientMessage parses and dispatches one client command.
// Malformed messages are logged and ignored; the connection stays open.
func (s *Server) handleClientMessage(c *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Warning("Malformed message from client %s: %v", c.id, err)
		return
	}

	switch cmd.Type {
	case models.MsgSubscribe:
		s.handleSubscribe(c, cmd)
	case models.MsgUnsubscribe:
		s.handleUnsubscribe(c, cmd)
	default:
		s.Logger.Warning("Unknown message type %q from client %s", cmd.Type, c.id)
	}
}

// -----------------------------------------------------------------------------

func (s *Server) handleSubscribe(c *Client, cmd models.MClientCommand) {
	key := candle.Key{Symbol: cmd.Symbol, Resolution: candle.Resolution(cmd.Resolution)}
	if !candle.IsValid(key.Resolution) {
		// Reject just this subscription, the connection stays open.
		s.Logger.Warning("Rejected subscription %s from client %s: unsupported resolution", key, c.id)
		return
	}

	// History goes on the send queue before the subscription is live, so
	// no bar event can overtake it. An event landing in this window is
	// simply missed; the next update carries the full bar state anyway.
	bars := s.stream.History(key)
	history := models.MHistoryMessage{
		Type:       models.MsgHistory,
		Symbol:     key.Symbol,
		Resolution: string(key.Resolution),
		Bars:       bars,
		Count:      len(bars),
	}
	payload, err := json.Marshal(history)
	if err != nil {
		s.Logger.Error("Failed to serialize history for %s: %v", key, err)
		return
	}
	c.enqueue(payload)

	if s.registry.Subscribe(c, key) {
		s.stream.Retain(key)
	}
}

// -----------------------------------------------------------------------------

func (s *Server) handleUnsubscribe(c *Client, cmd models.MClientCommand) {
	key := candle.Key{Symbol: cmd.Symbol, Resolution: candle.Resolution(cmd.Resolution)}
	// Retain ran once per registered subscription, so every removal
	// releases exactly one engine reference.
	removed, _ := s.registry.Unsubscribe(c, key)
	if removed {
		s.stream.Release(key)
	}
}

// -----------------------------------------------------------------------------

// dropClient runs the full disconnect cleanup: every subscription owned
// by the client goes away, each one releases its engine reference, and
// the heartbeat metadata is deleted.
func (s *Server) dropClient(c *Client) {
	for _, key := range s.registry.RemoveClient(c) {
		s.stream.Release(key)
	}
	s.pool.Remove(c)
}
