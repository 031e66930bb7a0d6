package models

// MBar is one OHLCV candle in the exact shape the charting widget
// expects on the wire. Time is the bar start in unix seconds, aligned
// to the resolution boundary.
type MBar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
