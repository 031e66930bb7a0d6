package sim

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/logger"
	"candle-relay/src/models"
	"candle-relay/src/utils"
)

// -----------------------------------------------------------------------------
// Simulated feed: random-walk ticks at a fixed cadence, for local runs
// and demos. Equity-style symbols stop ticking while their venue is
// closed; crypto-style symbols run around the clock.
// -----------------------------------------------------------------------------

const defaultTickMillis = 500

type SimSource struct {
	SourceConfig    models.MSourceConfig
	Logger          *logger.Logger
	MarketScheduler *utils.MarketScheduler

	symbols    atomic.Value // []string
	prices     map[string]float64
	pricesMu   sync.Mutex
	rng        *rand.Rand
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewSimSource(sourceCfg models.MSourceConfig, log *logger.Logger) *SimSource {
	s := &SimSource{
		SourceConfig:    sourceCfg,
		Logger:          log,
		MarketScheduler: utils.NewMarketScheduler(sourceCfg.Symbols, log),
		prices:          make(map[string]float64),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.symbols.Store(sourceCfg.Symbols)

	// Arbitrary but stable starting levels per symbol
	for _, sym := range sourceCfg.Symbols {
		s.prices[sym] = 100 + float64(len(sym))*10
	}
	return s
}

// -----------------------------------------------------------------------------

func (s *SimSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

// IsRealTime returns false: generated data, not a live exchange.
func (s *SimSource) IsRealTime() bool {
	return false
}

// -----------------------------------------------------------------------------

func (s *SimSource) UpdateSymbols(symbols []string) error {
	s.symbols.Store(symbols)
	s.MarketScheduler.UpdateSymbols(symbols)

	s.pricesMu.Lock()
	for _, sym := range symbols {
		if _, ok := s.prices[sym]; !ok {
			s.prices[sym] = 100 + float64(len(sym))*10
		}
	}
	s.pricesMu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

func (s *SimSource) getSymbols() []string {
	if v := s.symbols.Load(); v != nil {
		return v.([]string)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *SimSource) Start(ctx context.Context, outputChan chan<- models.MTick, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	cadence := time.Duration(s.SourceConfig.TickMillis) * time.Millisecond
	if cadence <= 0 {
		cadence = defaultTickMillis * time.Millisecond
	}

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cadence)
		defer ticker.Stop()

		s.Logger.Info("SimSource %s started (%v cadence, %d symbols)",
			s.Name(), cadence, len(s.getSymbols()))

		for {
			select {
			case <-ctx.Done():
				s.Logger.Info("SimSource %s stopped", s.Name())
				return
			case now := <-ticker.C:
				for _, sym := range s.getSymbols() {
					if !s.MarketScheduler.IsSymbolOpen(sym, now) {
						continue
					}
					tick := s.nextTick(sym, now)
					select {
					case outputChan <- tick:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------

// nextTick advances the symbol's random walk by one step.
func (s *SimSource) nextTick(symbol string, now time.Time) models.MTick {
	s.pricesMu.Lock()
	price := s.prices[symbol]
	// +/-0.25% step, floored so the walk cannot cross zero
	price = price * (1 + (s.rng.Float64()-0.5)*0.005)
	if price < 0.01 {
		price = 0.01
	}
	s.prices[symbol] = price
	s.pricesMu.Unlock()

	return models.MTick{
		Symbol:     symbol,
		Price:      price,
		Volume:     float64(s.rng.Intn(100)+1) / 10,
		ReceivedAt: now,
	}
}

// -----------------------------------------------------------------------------

func (s *SimSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	return nil
}
