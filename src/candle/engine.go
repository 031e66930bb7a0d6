package candle

import (
	"sync"
	"time"

	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// Aggregation Engine
// -----------------------------------------------------------------------------

type activeBar struct {
	bar   models.MBar
	start time.Time
	ticks int64
}

// Engine owns one in-progress bar per retained (symbol, resolution) key.
// Ticks mutate or roll those bars and produce events; closed bars land in
// the cache. Only keys with at least one live subscription are
// aggregated, so per-tick work is bounded by actual demand.
type Engine struct {
	mu         sync.Mutex
	cache      *Cache
	active     map[Key]*activeBar
	refs       map[Key]int
	symbolKeys map[string]map[Key]struct{}

	// Emit receives events in tick-arrival order per key. Set before the
	// first ProcessTick; called outside the engine lock.
	Emit func(Event)

	// OnClose, if set, receives every finalized bar (persistence hook).
	OnClose func(Key, models.MBar)
}

// -----------------------------------------------------------------------------

func NewEngine(cache *Cache) *Engine {
	return &Engine{
		cache:      cache,
		active:     make(map[Key]*activeBar),
		refs:       make(map[Key]int),
		symbolKeys: make(map[string]map[Key]struct{}),
	}
}

// -----------------------------------------------------------------------------

// Retain registers interest in a key. The first retain makes the key
// eligible for aggregation; the resolution must already be validated by
// the caller, unknown ones are rejected here as a backstop.
func (e *Engine) Retain(key Key) error {
	if !IsValid(key.Resolution) {
		return ErrUnsupportedResolution
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.refs[key]++
	keys := e.symbolKeys[key.Symbol]
	if keys == nil {
		keys = make(map[Key]struct{})
		e.symbolKeys[key.Symbol] = keys
	}
	keys[key] = struct{}{}
	return nil
}

// -----------------------------------------------------------------------------

// Release drops one reference. At zero the key's active bar state is
// destroyed; the cached closed bars stay for reconnecting clients.
func (e *Engine) Release(key Key) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.refs[key] - 1
	if n > 0 {
		e.refs[key] = n
		return
	}

	delete(e.refs, key)
	delete(e.active, key)
	if keys := e.symbolKeys[key.Symbol]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(e.symbolKeys, key.Symbol)
		}
	}
}

// -----------------------------------------------------------------------------

// ProcessTick folds one tick into every retained key for its symbol.
// A tick whose aligned start moves past the active bar finalizes it
// (cache append + final update event) and opens the next one. Late or
// duplicate ticks fold into the current active bar; the engine never
// rewrites closed history.
func (e *Engine) ProcessTick(t models.MTick) {
	type closed struct {
		key Key
		bar models.MBar
	}
	var events []Event
	var finalized []closed

	e.mu.Lock()
	for key := range e.symbolKeys[t.Symbol] {
		dur, err := Duration(key.Resolution)
		if err != nil {
			continue // unreachable for retained keys
		}
		start := AlignTime(t.ReceivedAt, dur)

		ab := e.active[key]
		if ab == nil || start.After(ab.start) {
			if ab != nil {
				events = append(events, BarUpdated{Key: key, Bar: ab.bar})
				finalized = append(finalized, closed{key: key, bar: ab.bar})
				e.cache.Append(key, ab.bar)
			}

			nb := &activeBar{
				bar: models.MBar{
					Time:   start.Unix(),
					Open:   t.Price,
					High:   t.Price,
					Low:    t.Price,
					Close:  t.Price,
					Volume: t.Volume,
				},
				start: start,
				ticks: 1,
			}
			e.active[key] = nb
			events = append(events, BarOpened{Key: key, Bar: nb.bar})
			continue
		}

		// In-window tick, or a late one folded into the current bar.
		if t.Price > ab.bar.High {
			ab.bar.High = t.Price
		}
		if t.Price < ab.bar.Low {
			ab.bar.Low = t.Price
		}
		ab.bar.Close = t.Price
		ab.bar.Volume += t.Volume
		ab.ticks++
		events = append(events, BarUpdated{Key: key, Bar: ab.bar})
	}
	e.mu.Unlock()

	for _, c := range finalized {
		if e.OnClose != nil {
			e.OnClose(c.key, c.bar)
		}
	}
	for _, ev := range events {
		if e.Emit != nil {
			e.Emit(ev)
		}
	}
}

// -----------------------------------------------------------------------------

// ActiveBars returns the number of in-progress bars.
func (e *Engine) ActiveBars() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// -----------------------------------------------------------------------------

// ActiveBar returns a copy of the key's in-progress bar, if any.
func (e *Engine) ActiveBar(key Key) (models.MBar, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ab := e.active[key]; ab != nil {
		return ab.bar, true
	}
	return models.MBar{}, false
}
