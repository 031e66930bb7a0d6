package candle

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Resolutions
// -----------------------------------------------------------------------------

// ErrUnsupportedResolution is returned for resolution strings outside the
// registry. Subscriptions carrying one are rejected before they reach the
// aggregation engine.
var ErrUnsupportedResolution = errors.New("unsupported resolution")

// Resolution is a bar window size in the charting widget's naming scheme:
// minute counts ("1", "5", ... "240") plus "D" and "W".
type Resolution string

// Supported resolutions, in ascending window order.
var AllResolutions = []Resolution{"1", "5", "15", "30", "60", "240", "D", "W"}

var resolutionDurations = map[Resolution]time.Duration{
	"1":   time.Minute,
	"5":   5 * time.Minute,
	"15":  15 * time.Minute,
	"30":  30 * time.Minute,
	"60":  time.Hour,
	"240": 4 * time.Hour,
	"D":   24 * time.Hour,
	"W":   7 * 24 * time.Hour,
}

// -----------------------------------------------------------------------------

// Duration maps a resolution to its fixed window duration.
func Duration(res Resolution) (time.Duration, error) {
	d, ok := resolutionDurations[res]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedResolution, res)
	}
	return d, nil
}

// -----------------------------------------------------------------------------

// IsValid reports whether the resolution string is in the registry.
func IsValid(res Resolution) bool {
	_, ok := resolutionDurations[res]
	return ok
}

// -----------------------------------------------------------------------------

// AlignTime floors t to the start of the bar window containing it.
// Pure and idempotent: AlignTime(AlignTime(t, d), d) == AlignTime(t, d).
// "D" and "W" align by flat UTC floor of their fixed duration, which is
// what the widget's streaming protocol expects.
func AlignTime(t time.Time, d time.Duration) time.Time {
	n := t.UnixNano()
	i := int64(d)
	return time.Unix(0, (n/i)*i).UTC()
}

// -----------------------------------------------------------------------------

// Key identifies one aggregation stream.
type Key struct {
	Symbol     string
	Resolution Resolution
}

func (k Key) String() string {
	return k.Symbol + "@" + string(k.Resolution)
}
