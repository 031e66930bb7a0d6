package binance

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/coder/websocket"
)

// -----------------------------------------------------------------------------
// Binance trade-stream source. Connects to the combined stream endpoint,
// reconnects with jittered backoff, and pushes one MTick per trade.
// -----------------------------------------------------------------------------

const (
	defaultURL  = "wss://stream.binance.com:9443/stream"
	dialTimeout = 5 * time.Second
	readTimeout = 30 * time.Second
	minBackoff  = 200 * time.Millisecond
	maxBackoff  = 10 * time.Second
	// Connection must survive this long before backoff resets, which
	// avoids a reconnect storm on connect-then-drop flapping.
	stableReset = 10 * time.Second
)

type BinanceSource struct {
	SourceConfig models.MSourceConfig
	Logger       *logger.Logger

	symbols    atomic.Value // []string
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// streamEnvelope is the combined-stream wrapper.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// tradeEvent mirrors the Binance trade payload.
type tradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"` // milliseconds
}

// -----------------------------------------------------------------------------

func NewBinanceSource(sourceCfg models.MSourceConfig, log *logger.Logger) *BinanceSource {
	s := &BinanceSource{
		SourceConfig: sourceCfg,
		Logger:       log,
	}
	s.symbols.Store(sourceCfg.Symbols)
	return s
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

// IsRealTime returns true: live exchange trades.
func (s *BinanceSource) IsRealTime() bool {
	return true
}

// -----------------------------------------------------------------------------

// UpdateSymbols takes effect on the next reconnect; the stream list is
// part of the connection URL.
func (s *BinanceSource) UpdateSymbols(symbols []string) error {
	s.symbols.Store(symbols)
	return nil
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) getSymbols() []string {
	if v := s.symbols.Load(); v != nil {
		return v.([]string)
	}
	return nil
}

// -----------------------------------------------------------------------------

// streamURL builds the combined endpoint for the configured symbols,
// e.g. .../stream?streams=btcusdt@trade/ethusdt@trade
func (s *BinanceSource) streamURL() string {
	base := s.SourceConfig.URL
	if base == "" {
		base = defaultURL
	}

	streams := make([]string, 0, len(s.getSymbols()))
	for _, sym := range s.getSymbols() {
		streams = append(streams, strings.ToLower(sym)+"@trade")
	}
	return base + "?streams=" + strings.Join(streams, "/")
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Start(ctx context.Context, outputChan chan<- models.MTick, wg *sync.WaitGroup) error {
	if len(s.getSymbols()) == 0 {
		return errors.New("binance source has no symbols")
	}

	s.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.mu.Unlock()

	go func() {
		defer wg.Done()
		s.run(ctx, outputChan)
	}()
	return nil
}

// -----------------------------------------------------------------------------

// run is the reconnect loop: dial, serve until the connection dies, back
// off with jitter, repeat until cancelled.
func (s *BinanceSource) run(ctx context.Context, outputChan chan<- models.MTick) {
	backoff := minBackoff
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for ctx.Err() == nil {
		url := s.streamURL()

		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, _, err := websocket.Dial(dctx, url, nil)
		cancel()
		if err != nil {
			sleep := jitter(rng, backoff)
			s.Logger.Warning("[%s] dial failed: %v; retry in %v", s.Name(), err, sleep)
			if !sleepCtx(ctx, sleep) {
				return
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		s.Logger.Info("[%s] connected: %s", s.Name(), url)
		start := time.Now()

		err = s.serveConn(ctx, conn, outputChan)
		conn.CloseNow()

		if time.Since(start) >= stableReset {
			backoff = minBackoff
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			s.Logger.Warning("[%s] connection ended: %v", s.Name(), err)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) serveConn(ctx context.Context, conn *websocket.Conn, outputChan chan<- models.MTick) error {
	for {
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		_, raw, err := conn.Read(rctx)
		cancel()
		if err != nil {
			return err
		}

		tick, ok := s.decode(raw)
		if !ok {
			continue
		}

		select {
		case outputChan <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// -----------------------------------------------------------------------------

// decode parses one combined-stream frame into a tick. Non-trade frames
// and unparsable payloads are skipped.
func (s *BinanceSource) decode(raw []byte) (models.MTick, bool) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.MTick{}, false
	}

	var trade tradeEvent
	if err := json.Unmarshal(env.Data, &trade); err != nil || trade.EventType != "trade" {
		return models.MTick{}, false
	}

	price, err := strconv.ParseFloat(trade.Price, 64)
	if err != nil {
		return models.MTick{}, false
	}
	qty, err := strconv.ParseFloat(trade.Quantity, 64)
	if err != nil {
		return models.MTick{}, false
	}

	return models.MTick{
		Symbol:     trade.Symbol,
		Price:      price,
		Volume:     qty,
		ReceivedAt: time.UnixMilli(trade.TradeTime),
	}, true
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	return nil
}

// -----------------------------------------------------------------------------

func jitter(rng *rand.Rand, d time.Duration) time.Duration {
	f := 0.5 + rng.Float64() // 0.5x~1.5x
	return time.Duration(float64(d) * f)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
