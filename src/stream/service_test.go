package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"candle-relay/src/candle"
	"candle-relay/src/logger"
	"candle-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name:     "test",
		LogLevel: "ERROR",
		Stream: models.MStreamConfig{
			MaxConnections:   16,
			HeartbeatSeconds: 30,
			CacheBars:        500,
			SendBuffer:       64,
		},
	}
}

// sinkRecorder captures finalized bars handed to the persistence hook.
type sinkRecorder struct {
	mu   sync.Mutex
	bars []models.MBar
}

func (r *sinkRecorder) Initialize() error { return nil }
func (r *sinkRecorder) Close() error      { return nil }
func (r *sinkRecorder) SaveBar(symbol, resolution string, bar models.MBar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bars = append(r.bars, bar)
}
func (r *sinkRecorder) saved() []models.MBar {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MBar(nil), r.bars...)
}

func TestServiceAggregatesTicksFromChannel(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")
	svc := NewService(testConfig(), log, nil)

	var mu sync.Mutex
	var events []candle.Event
	svc.SetEmitter(func(ev candle.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	key := candle.Key{Symbol: "BTC-USD", Resolution: "1"}
	svc.Retain(key)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	at := time.Date(2024, 5, 20, 14, 3, 5, 0, time.UTC)
	svc.Ticks() <- models.MTick{Symbol: "BTC-USD", Price: 100, Volume: 1, ReceivedAt: at}
	svc.Ticks() <- models.MTick{Symbol: "BTC-USD", Price: 101, Volume: 1, ReceivedAt: at.Add(time.Second)}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.IsType(t, candle.BarOpened{}, events[0])
	assert.IsType(t, candle.BarUpdated{}, events[1])

	active, cached := svc.Stats()
	assert.Equal(t, 1, active)
	assert.Equal(t, 0, cached)
}

func TestServiceForwardsClosedBarsToSink(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")
	sink := &sinkRecorder{}
	svc := NewService(testConfig(), log, sink)
	svc.SetEmitter(func(candle.Event) {})

	key := candle.Key{Symbol: "BTC-USD", Resolution: "1"}
	svc.Retain(key)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	at := time.Date(2024, 5, 20, 14, 3, 0, 0, time.UTC)
	svc.Ticks() <- models.MTick{Symbol: "BTC-USD", Price: 100, Volume: 1, ReceivedAt: at}
	svc.Ticks() <- models.MTick{Symbol: "BTC-USD", Price: 110, Volume: 1, ReceivedAt: at.Add(time.Minute)}

	require.Eventually(t, func() bool {
		return len(sink.saved()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	saved := sink.saved()[0]
	assert.Equal(t, at.Unix(), saved.Time)
	assert.Equal(t, 100.0, saved.Close)

	// The closed bar is also in the history snapshot.
	require.Len(t, svc.History(key), 1)
}

func TestServiceStartIsIdempotentAndStops(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")
	svc := NewService(testConfig(), log, nil)
	svc.SetEmitter(func(candle.Event) {})

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Start(ctx), "second start is a no-op")

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
