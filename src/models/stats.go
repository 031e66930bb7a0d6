package models

// MStreamStats is the operational snapshot served by /api/stats.
// Read-only; collecting it has no side effects.
type MStreamStats struct {
	ActiveSubscriptions   int            `json:"activeSubscriptions"`
	ActiveBars            int            `json:"activeBars"`
	CachedBars            int            `json:"cachedBars"`
	Connections           int            `json:"connections"`
	SubscriptionsBySymbol map[string]int `json:"subscriptionsBySymbol"`
}
