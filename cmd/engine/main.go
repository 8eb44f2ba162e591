package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/aggregator"
	"sentiment-lab/internal/config"
	"sentiment-lab/internal/engine"
	"sentiment-lab/internal/feargreed"
	"sentiment-lab/internal/ingestion"
	"sentiment-lab/internal/ingestion/stub"
	"sentiment-lab/internal/observability"
	sigsynth "sentiment-lab/internal/signal"
	"sentiment-lab/internal/storage"
	chstore "sentiment-lab/internal/storage/clickhouse"
	"sentiment-lab/internal/storage/memory"
	"sentiment-lab/internal/storage/migrations"
	pgstore "sentiment-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when omitted)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage even when DSNs are configured")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().
		Timestamp().Str("component", "engine").Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Error().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Error().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	if err := run(ctx, cfg, *useMemory, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("engine failed")
	}
	close(done)
	logger.Info().Msg("shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadWithEnv(path)
}

func run(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) error {
	metrics := observability.NewMetrics("")

	// Metrics server
	if cfg.Server.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", cfg.Server.MetricsAddr).Msg("metrics server listening")
			if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	// Stores: ClickHouse for the observation firehose, Postgres for signals.
	var obsStore storage.ObservationStore = memory.NewObservationStore()
	var marketStore storage.MarketStore = memory.NewMarketStore()
	var indexStore storage.IndexStore = memory.NewIndexStore()
	var signalStore storage.SignalStore = memory.NewSignalStore()

	if !useMemory && cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		obsStore = chstore.NewObservationStore(conn)
		marketStore = chstore.NewMarketStore(conn)
		indexStore = chstore.NewIndexStore(conn)
		logger.Info().Msg("clickhouse stores ready")
	}

	if !useMemory && cfg.Postgres.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		signalStore = pgstore.NewSignalStore(pool)
		logger.Info().Msg("postgres stores ready")
	}

	agg := aggregator.New(cfg.Aggregator.Capacity)
	priceBook := ingestion.NewPriceBook()

	// Warm the window from persisted history so the first evaluations are
	// not blind after a restart.
	if !useMemory && cfg.ClickHouse.DSN != "" {
		nowMs := time.Now().UnixMilli()
		startMs := nowMs - int64(cfg.Signals.LongWindowSeconds)*1000
		if err := ingestion.Backfill(ctx, obsStore, agg, cfg.Ingestion.Symbols, startMs, nowMs, logger); err != nil {
			logger.Warn().Err(err).Msg("backfill failed, starting cold")
		}
	}

	// Sources
	var sources []ingestion.SentimentSource
	var marketSources []ingestion.MarketSource
	if cfg.Ingestion.Stub.Enabled {
		sources = append(sources, stub.NewSentimentSource(cfg.Ingestion.Symbols, cfg.Ingestion.Stub.Interval, cfg.Ingestion.Stub.Seed))
		marketSources = append(marketSources, stub.NewMarketSource(cfg.Ingestion.Symbols, cfg.Ingestion.Stub.Interval, cfg.Ingestion.Stub.Seed+1))
	}
	if cfg.Ingestion.MarketWSURL != "" {
		marketSources = append(marketSources, ingestion.NewWSMarketSource(cfg.Ingestion.MarketWSURL, cfg.Ingestion.Symbols, nil))
	}
	if len(sources) == 0 {
		logger.Warn().Msg("no sentiment sources configured, evaluation will stay neutral")
	}

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Sources:       sources,
		MarketSources: marketSources,
		Aggregator:    agg,
		ObsStore:      obsStore,
		MarketStore:   marketStore,
		PriceBook:     priceBook,
		Metrics:       metrics,
		QueueCapacity: cfg.Ingestion.QueueCapacity,
		RetryDelay:    cfg.Ingestion.RetryDelay,
		MaxRetryDelay: cfg.Ingestion.MaxRetryDelay,
		Logger:        logger.With().Str("component", "ingestion").Logger(),
	})

	calc := feargreed.NewCalculator(cfg.FearGreedThresholds(), nil)
	synth := sigsynth.New(cfg.SignalConfig(), agg, priceBook)

	eval, err := engine.New(engine.Options{
		Aggregator:         agg,
		Calculator:         calc,
		Synthesizer:        synth,
		IndexStore:         indexStore,
		SignalStore:        signalStore,
		Metrics:            metrics,
		Interval:           cfg.Engine.Interval,
		ShortWindowSeconds: cfg.Engine.ShortWindowSeconds,
		Logger:             logger.With().Str("component", "evaluation").Logger(),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- runner.Run(ctx) }()
	go func() { errCh <- eval.Run(ctx) }()

	// Both loops exit on context cancellation; the first real error wins.
	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; firstErr == nil && err != nil {
			firstErr = err
		}
	}
	return firstErr
}
