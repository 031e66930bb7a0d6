package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"candle-relay/src/config"
	datasource "candle-relay/src/data_source"
	"candle-relay/src/data_source/binance"
	"candle-relay/src/data_source/sim"
	"candle-relay/src/interfaces"
	"candle-relay/src/logger"
	"candle-relay/src/server"
	"candle-relay/src/storage"
	"candle-relay/src/stream"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// .env is optional; real env vars still apply without it
	godotenv.Load()

	// Load config from YAML file (+ env overrides)
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 1. Persistence sink (optional)
	var sink interfaces.IBarSink
	if cfg.Storage.Enabled {
		switch cfg.Storage.DBType {
		case "postgres":
			sink, err = storage.NewPostgresSink(cfg.MConfig, appLogger)
		default:
			// Default to SQLite
			sink, err = storage.NewAsyncSQLiteSink(cfg.MConfig, appLogger)
		}
		if err != nil {
			appLogger.Critical("Failed to init bar sink: %v", err)
		}
		if err := sink.Initialize(); err != nil {
			appLogger.Critical("Failed to initialize bar sink: %v", err)
		}
		defer sink.Close()
	}

	// 2. Streaming service (engine + cache) and server
	svc := stream.NewService(cfg.MConfig, appLogger, sink)
	srv := server.NewServer(cfg.MConfig, appLogger, svc)
	svc.SetEmitter(srv.Fanout)

	// 3. Upstream feeds
	var sources []interfaces.IDataSource
	for _, srcCfg := range cfg.Feed.Sources {
		switch srcCfg.Type {
		case "binance":
			sources = append(sources,
				binance.NewBinanceSource(srcCfg, logger.NewLogger(cfg.LogLevel, "Binance-"+srcCfg.Name)))
		case "sim":
			sources = append(sources,
				sim.NewSimSource(srcCfg, logger.NewLogger(cfg.LogLevel, "Sim-"+srcCfg.Name)))
		default:
			appLogger.Critical("Unsupported feed source type: %s", srcCfg.Type)
		}
	}
	feeds := datasource.NewFeedManager(sources, appLogger)

	// 4. Start everything
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		appLogger.Critical("Failed to start streaming service: %v", err)
	}

	feedWg := &sync.WaitGroup{}
	if err := feeds.Start(ctx, svc.Ticks(), feedWg); err != nil {
		appLogger.Critical("Failed to start feeds: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()      // Signal feeds and aggregation to stop
	feedWg.Wait() // Wait for sources to close
	svc.Stop()
}
