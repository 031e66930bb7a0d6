package models

// -----------------------------------------------------------------------------
// Wire Protocol (JSON over WebSocket)
// -----------------------------------------------------------------------------

// Client -> server message types.
const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
)

// Server -> client message types.
const (
	MsgHistory   = "history"
	MsgBarNew    = "new"
	MsgBarUpdate = "update"
)

// MClientCommand is the envelope for every client-originated message.
// Unknown Type values are treated as malformed and ignored.
type MClientCommand struct {
	Type       string `json:"type"`
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
}

// MHistoryMessage replays the cached closed bars to a late joiner,
// sent exactly once right after a successful subscribe.
type MHistoryMessage struct {
	Type       string `json:"type"`
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	Bars       []MBar `json:"bars"`
	Count      int    `json:"count"`
}

// MBarMessage carries a single bar, either freshly opened ("new") or
// mutated ("update"). The final update of a bar is its close; there is
// no separate close message on the wire.
type MBarMessage struct {
	Type       string `json:"type"`
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	Bar        MBar   `json:"bar"`
}
