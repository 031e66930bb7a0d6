package server

import (
	"testing"

	"candle-relay/src/candle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySubscribeAndDuplicate(t *testing.T) {
	r := NewRegistry()
	c := &Client{id: "c1"}
	key := candle.Key{Symbol: "BTC-USD", Resolution: "1"}

	assert.True(t, r.Subscribe(c, key))
	assert.False(t, r.Subscribe(c, key), "duplicate subscription is a no-op")

	subs := r.SubscribersOf(key)
	require.Len(t, subs, 1)
	assert.Same(t, c, subs[0])
}

func TestRegistryUnsubscribe(t *testing.T) {
	r := NewRegistry()
	c1 := &Client{id: "c1"}
	c2 := &Client{id: "c2"}
	key := candle.Key{Symbol: "BTC-USD", Resolution: "1"}

	r.Subscribe(c1, key)
	r.Subscribe(c2, key)

	removed, keyEmpty := r.Unsubscribe(c1, key)
	assert.True(t, removed)
	assert.False(t, keyEmpty, "c2 still watches the key")

	removed, keyEmpty = r.Unsubscribe(c2, key)
	assert.True(t, removed)
	assert.True(t, keyEmpty)

	assert.Empty(t, r.SubscribersOf(key))
}

func TestRegistryUnsubscribeUnknown(t *testing.T) {
	r := NewRegistry()
	c := &Client{id: "c1"}
	key := candle.Key{Symbol: "BTC-USD", Resolution: "1"}

	removed, keyEmpty := r.Unsubscribe(c, key)
	assert.False(t, removed)
	assert.False(t, keyEmpty)
}

func TestRegistryRemoveClient(t *testing.T) {
	r := NewRegistry()
	c1 := &Client{id: "c1"}
	c2 := &Client{id: "c2"}
	k1 := candle.Key{Symbol: "BTC-USD", Resolution: "1"}
	k2 := candle.Key{Symbol: "BTC-USD", Resolution: "5"}
	k3 := candle.Key{Symbol: "ETH-USD", Resolution: "1"}

	r.Subscribe(c1, k1)
	r.Subscribe(c1, k2)
	r.Subscribe(c1, k3)
	r.Subscribe(c2, k1)

	held := r.RemoveClient(c1)

	// One entry per subscription c1 held, shared keys included.
	assert.ElementsMatch(t, []candle.Key{k1, k2, k3}, held)
	require.Len(t, r.SubscribersOf(k1), 1, "k1 still has c2")
	assert.Empty(t, r.SubscribersOf(k2))

	total, _ := r.Counts()
	assert.Equal(t, 1, total)
}

func TestRegistryCounts(t *testing.T) {
	r := NewRegistry()
	c1 := &Client{id: "c1"}
	c2 := &Client{id: "c2"}

	r.Subscribe(c1, candle.Key{Symbol: "BTC-USD", Resolution: "1"})
	r.Subscribe(c2, candle.Key{Symbol: "BTC-USD", Resolution: "1"})
	r.Subscribe(c1, candle.Key{Symbol: "BTC-USD", Resolution: "5"})
	r.Subscribe(c1, candle.Key{Symbol: "ETH-USD", Resolution: "1"})

	total, bySymbol := r.Counts()
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, bySymbol["BTC-USD"])
	assert.Equal(t, 1, bySymbol["ETH-USD"])
}
