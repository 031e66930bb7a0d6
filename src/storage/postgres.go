package storage

import (
	"database/sql"
	"fmt"
	"sync"

	"candle-relay/src/logger"
	"candle-relay/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------
// Postgres bar sink, same async contract as the SQLite one.
// -----------------------------------------------------------------------------

type PostgresSink struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger

	queue chan barRow
	done  chan struct{}
	once  sync.Once
}

// -----------------------------------------------------------------------------

func NewPostgresSink(cfg *models.MConfig, log *logger.Logger) (*PostgresSink, error) {
	return &PostgresSink{
		Config: cfg,
		Logger: log,
		queue:  make(chan barRow, sinkQueueSize),
		done:   make(chan struct{}),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresSink) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	query := `
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT,
			resolution TEXT,
			time BIGINT,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			PRIMARY KEY (symbol, resolution, time)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create bars table: %w", err)
	}

	go d.writer()

	d.Logger.Info("PostgresSink initialized")
	return nil
}

// -----------------------------------------------------------------------------

// SaveBar enqueues one closed bar. Drops the bar when the queue is full
// rather than stalling the caller.
func (d *PostgresSink) SaveBar(symbol string, resolution string, bar models.MBar) {
	select {
	case d.queue <- barRow{symbol: symbol, resolution: resolution, bar: bar}:
	default:
		d.Logger.Warning("Bar sink queue full, dropping %s@%s", symbol, resolution)
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresSink) writer() {
	defer close(d.done)

	query := `
		INSERT INTO bars
			(symbol, resolution, time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, resolution, time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
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
func (d *PostgresSink) Close() error {
	d.once.Do(func() {
		close(d.queue)
	})
	<-d.done

	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
