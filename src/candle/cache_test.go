package candle

import (
	"testing"

	"candle-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barAt(ts int64) models.MBar {
	return models.MBar{Time: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
}

func TestCacheSnapshotMissingKey(t *testing.T) {
	c := NewCache(10)
	snap := c.Snapshot(Key{Symbol: "BTC-USD", Resolution: "1"})
	assert.Empty(t, snap)
	assert.Equal(t, 0, c.TotalBars())
}

func TestCacheAppendAndOrder(t *testing.T) {
	c := NewCache(10)
	key := Key{Symbol: "BTC-USD", Resolution: "1"}

	for i := int64(0); i < 5; i++ {
		c.Append(key, barAt(i*60))
	}

	snap := c.Snapshot(key)
	require.Len(t, snap, 5)
	for i, bar := range snap {
		assert.Equal(t, int64(i*60), bar.Time, "chronological order, no duplicates")
	}
}

func TestCacheBoundedEviction(t *testing.T) {
	c := NewCache(500)
	key := Key{Symbol: "ETH-USD", Resolution: "5"}

	// Far more appends than capacity; the cache must stay bounded.
	for i := int64(0); i < 1500; i++ {
		c.Append(key, barAt(i))
	}

	snap := c.Snapshot(key)
	require.Len(t, snap, 500)
	assert.Equal(t, int64(1000), snap[0].Time, "oldest evicted first")
	assert.Equal(t, int64(1499), snap[499].Time)
	assert.Equal(t, 500, c.Len(key))
}

func TestCacheKeysAreIndependent(t *testing.T) {
	c := NewCache(3)
	k1 := Key{Symbol: "BTC-USD", Resolution: "1"}
	k2 := Key{Symbol: "BTC-USD", Resolution: "5"}

	c.Append(k1, barAt(60))
	c.Append(k2, barAt(300))

	require.Len(t, c.Snapshot(k1), 1)
	require.Len(t, c.Snapshot(k2), 1)
	assert.Equal(t, int64(60), c.Snapshot(k1)[0].Time)
	assert.Equal(t, int64(300), c.Snapshot(k2)[0].Time)
	assert.Equal(t, 2, c.TotalBars())
}

func TestCacheSnapshotIsACopy(t *testing.T) {
	c := NewCache(3)
	key := Key{Symbol: "AAPL", Resolution: "60"}
	c.Append(key, barAt(3600))

	snap := c.Snapshot(key)
	snap[0].Close = 999

	assert.Equal(t, 1.5, c.Snapshot(key)[0].Close)
}
