package interfaces

import "candle-relay/src/models"

// -----------------------------------------------------------------------------
// IBarSink defines the contract for persisting closed bars.
// Write-only: the live path never reads bars back from storage.
// -----------------------------------------------------------------------------

type IBarSink interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveBar enqueues one closed bar for asynchronous persistence.
	// Must never block the aggregation path.
	SaveBar(symbol string, resolution string, bar models.MBar)

	// -----------------------------------------------------------------------------

	// Close drains the write queue and closes the connection.
	Close() error
}
