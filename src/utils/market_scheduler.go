package utils

import (
	"sync"
	"time"

	"candle-relay/src/logger"
)

// MarketScheduler maps symbols to their venue calendars so the feed can
// skip symbols whose market is closed.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	ms.MapSymbolsToCalendars(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars maps a list of symbols to their respective calendars
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Calendars = make(map[string]*TradingCalendar)

	for _, symbol := range symbols {
		ms.Calendars[symbol] = GetCalendar(symbol)
	}

	ms.Logger.Info("MarketScheduler: mapped %d symbols", len(symbols))
}

// UpdateSymbols updates the scheduler with a new list of symbols
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	ms.MapSymbolsToCalendars(symbols)
}

// -----------------------------------------------------------------------------

// IsSymbolOpen reports whether the symbol's venue trades at t. Unknown
// symbols are treated as open.
func (ms *MarketScheduler) IsSymbolOpen(symbol string, t time.Time) bool {
	ms.mu.RLock()
	cal := ms.Calendars[symbol]
	ms.mu.RUnlock()

	if cal == nil {
		return true
	}
	return cal.IsOpenOnMinute(t)
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := time.Now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, cal := range ms.Calendars {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}
