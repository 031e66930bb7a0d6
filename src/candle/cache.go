package candle

import (
	"sync"

	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// Cache is a bounded per-key history of closed bars.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

// DefaultCacheBars is the per-key bound on retained closed bars.
const DefaultCacheBars = 500

// Bars are stored as fixed feature rows to keep each ring one flat
// allocation.
const (
	rbIdxTime = iota
	rbIdxOpen
	rbIdxHigh
	rbIdxLow
	rbIdxClose
	rbIdxVolume
	rbNumFeatures
)

type ring struct {
	data  [][rbNumFeatures]float64
	index int // Next write position
	size  int // Current number of elements
}

// Cache holds one ring per (symbol, resolution) key. Only the
// aggregation path appends; subscribers read snapshots on join.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	rings    map[Key]*ring
}

// -----------------------------------------------------------------------------

// NewCache creates a cache whose rings hold at most capacity bars each.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheBars
	}
	return &Cache{
		capacity: capacity,
		rings:    make(map[Key]*ring),
	}
}

// -----------------------------------------------------------------------------

// Append stores a closed bar, evicting the oldest once the ring is full.
func (c *Cache) Append(key Key, bar models.MBar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rb := c.rings[key]
	if rb == nil {
		rb = &ring{data: make([][rbNumFeatures]float64, c.capacity)}
		c.rings[key] = rb
	}

	rb.data[rb.index] = [rbNumFeatures]float64{
		float64(bar.Time),
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
	}

	rb.index = (rb.index + 1) % c.capacity

	// Size never exceeds capacity
	if rb.size < c.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns the key's closed bars oldest to newest. A missing key
// yields an empty slice.
func (c *Cache) Snapshot(key Key) []models.MBar {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rb := c.rings[key]
	if rb == nil || rb.size == 0 {
		return []models.MBar{}
	}

	// Oldest element is at the write index once the ring has wrapped.
	startIdx := 0
	if rb.size == c.capacity {
		startIdx = rb.index
	}

	result := make([]models.MBar, rb.size)
	for i := 0; i < rb.size; i++ {
		row := rb.data[(startIdx+i)%c.capacity]
		result[i] = models.MBar{
			Time:   int64(row[rbIdxTime]),
			Open:   row[rbIdxOpen],
			High:   row[rbIdxHigh],
			Low:    row[rbIdxLow],
			Close:  row[rbIdxClose],
			Volume: row[rbIdxVolume],
		}
	}
	return result
}

// -----------------------------------------------------------------------------

// Len returns the number of bars cached for one key.
func (c *Cache) Len(key Key) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rb := c.rings[key]; rb != nil {
		return rb.size
	}
	return 0
}

// -----------------------------------------------------------------------------

// TotalBars returns the number of cached bars across all keys.
func (c *Cache) TotalBars() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, rb := range c.rings {
		total += rb.size
	}
	return total
}

// -----------------------------------------------------------------------------

// Capacity returns the per-key bound (fixed).
func (c *Cache) Capacity() int {
	return c.capacity
}
