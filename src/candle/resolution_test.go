package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationKnownResolutions(t *testing.T) {
	cases := map[Resolution]time.Duration{
		"1":   time.Minute,
		"5":   5 * time.Minute,
		"15":  15 * time.Minute,
		"30":  30 * time.Minute,
		"60":  time.Hour,
		"240": 4 * time.Hour,
		"D":   24 * time.Hour,
		"W":   7 * 24 * time.Hour,
	}
	for res, want := range cases {
		d, err := Duration(res)
		require.NoError(t, err)
		assert.Equal(t, want, d, "resolution %s", res)
	}
}

func TestDurationUnknownResolution(t *testing.T) {
	for _, res := range []Resolution{"", "2", "1m", "1D", "M", "day"} {
		_, err := Duration(res)
		require.ErrorIs(t, err, ErrUnsupportedResolution, "resolution %q", res)
		assert.False(t, IsValid(res))
	}
}

func TestAlignTimeFloors(t *testing.T) {
	// 2024-03-15 10:47:33 UTC
	ts := time.Date(2024, 3, 15, 10, 47, 33, 123456789, time.UTC)

	aligned := AlignTime(ts, time.Minute)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 47, 0, 0, time.UTC), aligned)

	aligned = AlignTime(ts, 15*time.Minute)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 45, 0, 0, time.UTC), aligned)

	aligned = AlignTime(ts, 24*time.Hour)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), aligned)
}

func TestAlignTimeIdempotent(t *testing.T) {
	ts := time.Date(2023, 11, 7, 22, 13, 59, 999000000, time.UTC)

	for _, res := range AllResolutions {
		d, err := Duration(res)
		require.NoError(t, err)

		once := AlignTime(ts, d)
		twice := AlignTime(once, d)
		assert.True(t, once.Equal(twice), "resolution %s: %v != %v", res, once, twice)
	}
}

func TestAlignTimeOnBoundary(t *testing.T) {
	// A timestamp already on the boundary stays put.
	boundary := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	assert.True(t, boundary.Equal(AlignTime(boundary, 30*time.Minute)))
}
