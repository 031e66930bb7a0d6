package stream

import (
	"context"
	"sync"

	"candle-relay/src/candle"
	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// Streaming Service
// -----------------------------------------------------------------------------

// Service owns the aggregation engine and bar cache behind an explicit
// lifecycle. Instances are independent; nothing here is process-global,
// so tests can run several side by side.
type Service struct {
	Logger *logger.Logger

	cache  *candle.Cache
	engine *candle.Engine
	sink   interfaces.IBarSink

	ticks chan models.MTick

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// -----------------------------------------------------------------------------

// NewService wires cache, engine and the optional persistence sink.
// sink may be nil when storage is disabled.
func NewService(cfg *models.MConfig, log *logger.Logger, sink interfaces.IBarSink) *Service {
	cache := candle.NewCache(cfg.Stream.CacheBars)
	engine := candle.NewEngine(cache)

	s := &Service{
		Logger: log,
		cache:  cache,
		engine: engine,
		sink:   sink,
		ticks:  make(chan models.MTick, 1024),
	}

	if sink != nil {
		engine.OnClose = func(key candle.Key, bar models.MBar) {
			sink.SaveBar(key.Symbol, string(key.Resolution), bar)
		}
	}
	return s
}

// -----------------------------------------------------------------------------

// SetEmitter installs the event consumer (the broadcast dispatcher).
// Must be called before Start.
func (s *Service) SetEmitter(emit func(candle.Event)) {
	s.engine.Emit = emit
}

// -----------------------------------------------------------------------------

// Ticks is the feed-facing input channel.
func (s *Service) Ticks() chan<- models.MTick {
	return s.ticks
}

// -----------------------------------------------------------------------------

// Start launches the single aggregation goroutine. Per-key event order
// follows tick arrival order because all ticks flow through this one
// consumer.
func (s *Service) Start(parentCtx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFunc != nil {
		return nil // already running
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case tick, ok := <-s.ticks:
				if !ok {
					return
				}
				s.engine.ProcessTick(tick)
			}
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels the aggregation goroutine and waits for it to drain.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// -----------------------------------------------------------------------------

// Retain marks a key as subscribed so the engine aggregates it.
func (s *Service) Retain(key candle.Key) {
	if err := s.engine.Retain(key); err != nil {
		// Resolutions are validated at the subscribe boundary; this is a backstop.
		s.Logger.Warning("Retain %s: %v", key, err)
	}
}

// -----------------------------------------------------------------------------

// Release drops one subscription reference for the key.
func (s *Service) Release(key candle.Key) {
	s.engine.Release(key)
}

// -----------------------------------------------------------------------------

// History returns the cached closed bars for a late joiner, oldest first.
func (s *Service) History(key candle.Key) []models.MBar {
	return s.cache.Snapshot(key)
}

// -----------------------------------------------------------------------------

// Stats returns the active and cached bar counts.
func (s *Service) Stats() (activeBars int, cachedBars int) {
	return s.engine.ActiveBars(), s.cache.TotalBars()
}
