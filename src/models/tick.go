package models

import "time"

// MTick represents a single upstream price observation. Ticks are
// ephemeral: they are folded into the active bars and discarded.
type MTick struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	ReceivedAt time.Time `json:"received_at"`
}
