package candle

import "candle-relay/src/models"

// -----------------------------------------------------------------------------
// Engine Events
// -----------------------------------------------------------------------------

// Event is emitted by the aggregation engine, in tick-arrival order per
// key. A BarOpened for a bar is followed by zero or more BarUpdated
// events and exactly one final BarUpdated before the next BarOpened for
// the same key.
type Event interface {
	EventKey() Key
	isEvent()
}

// BarOpened signals that a new bar started accumulating for the key.
type BarOpened struct {
	Key Key
	Bar models.MBar
}

func (e BarOpened) EventKey() Key { return e.Key }
func (e BarOpened) isEvent()      {}

// BarUpdated signals that the key's current bar mutated. The last
// BarUpdated before the next BarOpened is the bar's closing state; the
// wire protocol has no separate close message.
type BarUpdated struct {
	Key Key
	Bar models.MBar
}

func (e BarUpdated) EventKey() Key { return e.Key }
func (e BarUpdated) isEvent()      {}
