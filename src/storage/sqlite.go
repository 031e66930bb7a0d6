package storage

import (
	"database/sql"
	"fmt"
	"sync"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------
// Async SQLite bar sink. Closed bars are queued and written by a single
// writer goroutine so the aggregation path never touches the database.
// -----------------------------------------------------------------------------

const sinkQueueSize = 4096

type barRow struct {
	symbol     string
	resolution string
	bar        models.MBar
}

type AsyncSQLiteSink struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger

	queue chan barRow
	done  chan struct{}
	once  sync.Once
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteSink(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteSink, error) {
	return &AsyncSQLiteSink{
		Config: cfg,
		Logger: log,
		queue:  make(chan barRow, sinkQueueSize),
		done:   make(chan struct{}),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteSink) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT,
			resolution TEXT,
			time INTEGER,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			PRIMARY KEY (symbol, resolution, time)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create bars table: %w", err)
	}

	go d.writer()

	d.Logger.Info("AsyncSQLiteSink initialized (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

// SaveBar enqueues one closed bar. Drops the bar when the queue is full
// rather than stalling the caller.
func (d *AsyncSQLiteSink) SaveBar(symbol string, resolution string, bar models.MBar) {
	select {
	case d.queue <- barRow{symbol: symbol, resolution: resolution, bar: bar}:
	default:
		d.Logger.Warning("Bar sink queue full, dropping %s@%s", symbol, resolution)
	}
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteSink) writer() {
	defer close(d.done)

	query := `
		INSERT OR REPLACE INTO bars
			(symbol, resolution, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for row := range d.queue {
		_, err := d.DB.Exec(query,
			row.symbol, row.resolution, row.bar.Time,
			row.bar.Open, row.bar.High, row.bar.Low, row.bar.Close, row.bar.Volume)
		if err != nil {
			d.Logger.Error("Failed to persist bar %s@%s: %v", row.symbol, row.resolution, err)
		}
	}
}

// -----------------------------------------------------------------------------

// Close drains the queue and closes the database.
func (d *AsyncSQLiteSink) Close() error {
	d.once.Do(func() {
		close(d.queue)
	})
	<-d.done

	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
