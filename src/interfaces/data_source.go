package interfaces

import (
	"context"
	"sync"

	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for push-based upstream tick feeds.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if the source delivers live exchange data
	// (false for the simulator)
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// UpdateSymbols updates the list of symbols being streamed
	UpdateSymbols(symbols []string) error

	// -----------------------------------------------------------------------------

	// Start begins pushing ticks.
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel to push ticks to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- models.MTick, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the feed (legacy/manual stop)
	// Ideally, cancelling the context passed to Start should be enough.
	Stop() error
}
