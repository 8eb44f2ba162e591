package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/aggregator"
	"sentiment-lab/internal/backtest"
	"sentiment-lab/internal/config"
	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/feargreed"
	"sentiment-lab/internal/ingestion"
	"sentiment-lab/internal/observability"
	"sentiment-lab/internal/orchestrator"
	"sentiment-lab/internal/reporting"
	sigsynth "sentiment-lab/internal/signal"
	"sentiment-lab/internal/storage"
	chstore "sentiment-lab/internal/storage/clickhouse"
	"sentiment-lab/internal/storage/memory"
	"sentiment-lab/internal/storage/migrations"
	pgstore "sentiment-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when omitted)")
	mode := flag.String("mode", "synthetic", "Backtest mode: synthetic or stored")
	duration := flag.Duration("duration", 72*time.Hour, "Simulated period for synthetic mode")
	fromTime := flag.String("from-time", "", "Start time for stored mode (RFC3339)")
	toTime := flag.String("to-time", "", "End time for stored mode (RFC3339)")
	output := flag.String("output", "markdown", "Output format: markdown, csv, or json")
	equityOut := flag.String("equity-out", "", "Write the equity curve CSV to this path")
	persist := flag.Bool("persist", false, "Persist the result to storage (requires postgres DSN)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "backtest").Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	}()

	metrics := observability.NewMetrics("")

	var run *orchestrator.RunResult
	switch *mode {
	case "synthetic":
		run, err = runSynthetic(ctx, cfg, *duration, *persist, metrics, logger)
	case "stored":
		run, err = runStored(ctx, cfg, *fromTime, *toTime, metrics, logger)
	default:
		logger.Fatal().Str("mode", *mode).Msg("unknown mode, use synthetic or stored")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}

	if *equityOut != "" {
		if err := os.WriteFile(*equityOut, []byte(reporting.RenderEquityCSV(run.EquityCurve)), 0o644); err != nil {
			logger.Fatal().Err(err).Msg("write equity curve")
		}
	}

	switch *output {
	case "markdown":
		fmt.Print(reporting.RenderMarkdown(run.Report))
	case "csv":
		fmt.Print(reporting.RenderCSV(run.Report.Results))
	case "json":
		out, _ := json.MarshalIndent(run.Result, "", "  ")
		fmt.Println(string(out))
	default:
		logger.Fatal().Str("output", *output).Msg("unknown output format")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadWithEnv(path)
}

func backtestConfig(cfg *config.Config) backtest.Config {
	return backtest.Config{
		StrategyName:   cfg.Backtest.StrategyName,
		InitialCapital: cfg.Backtest.InitialCapital,
		StepMs:         cfg.Backtest.Step.Milliseconds(),
		MaxHoldMs:      cfg.Backtest.MaxHold.Milliseconds(),
	}
}

// runSynthetic generates a seeded market and sentiment history, replays it
// through the live signal path tick by tick, then simulates the resulting
// signals. Signals are synthesized strictly from data at or before each
// tick, so the offline run sees exactly what the live engine would have.
func runSynthetic(ctx context.Context, cfg *config.Config, duration time.Duration, persist bool, metrics *observability.Metrics, logger zerolog.Logger) (*orchestrator.RunResult, error) {
	stepMs := cfg.Backtest.Step.Milliseconds()
	endMs := time.Now().UnixMilli()
	startMs := endMs - duration.Milliseconds()

	gen := backtest.NewSyntheticGenerator(cfg.Backtest.Seed, cfg.Ingestion.Symbols)
	prices := gen.MarketSeries(startMs, endMs, stepMs)
	sentiments := gen.SentimentSeries(startMs, endMs, stepMs)
	logger.Info().
		Int("symbols", len(prices)).
		Int("observations", len(sentiments)).
		Msg("synthetic history generated")

	signals, err := synthesizeSignals(ctx, cfg, sentiments, prices, startMs, endMs, stepMs)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("signals", len(signals)).Msg("signals synthesized")

	engine, err := backtest.NewEngine(backtestConfig(cfg))
	if err != nil {
		return nil, err
	}
	simStarted := time.Now()
	result, curve, err := engine.Run(ctx, signals, prices, startMs, endMs)
	metrics.BacktestDuration.Observe(time.Since(simStarted).Seconds())
	if err != nil {
		metrics.BacktestRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.BacktestRunsTotal.WithLabelValues("success").Inc()
	metrics.TradesSimulated.Add(float64(result.TotalTrades))

	stored := false
	if persist {
		if cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("--persist requires a postgres DSN")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, err
		}
		if err := pgstore.NewBacktestResultStore(pool).Insert(ctx, result); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return nil, fmt.Errorf("store result: %w", err)
			}
			logger.Warn().Msg("result for this period already stored")
		} else {
			stored = true
		}
	}

	return &orchestrator.RunResult{
		Result:      result,
		EquityCurve: curve,
		Report:      reporting.BuildReport([]*domain.BacktestResult{result}),
		Stored:      stored,
	}, nil
}

// synthesizeSignals walks the history in step order, feeding observations
// into the aggregator and evaluating the composite index at every tick.
func synthesizeSignals(ctx context.Context, cfg *config.Config, sentiments []*domain.SentimentObservation, prices map[string][]*domain.MarketObservation, startMs, endMs, stepMs int64) ([]*domain.TradingSignal, error) {
	agg := aggregator.New(cfg.Aggregator.Capacity)
	book := ingestion.NewPriceBook()
	calc := feargreed.NewCalculator(cfg.FearGreedThresholds(), nil)
	synth := sigsynth.New(cfg.SignalConfig(), agg, book)

	// Per-symbol cursors over the already-sorted market series.
	cursors := make(map[string]int, len(prices))

	var signals []*domain.TradingSignal
	next := 0
	for t := startMs; t <= endMs; t += stepMs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for next < len(sentiments) && sentiments[next].TimestampMs <= t {
			agg.Add(*sentiments[next])
			next++
		}
		for symbol, series := range prices {
			i := cursors[symbol]
			for i < len(series) && series[i].TimestampMs <= t {
				book.Update(symbol, series[i].Price)
				i++
			}
			cursors[symbol] = i
		}

		assets := agg.Assets()
		windows := make(map[string]*domain.AggregatedWindow, len(assets))
		for _, asset := range assets {
			windows[asset] = agg.Query(asset, cfg.Engine.ShortWindowSeconds, t)
		}
		index := calc.Compute(windows, t)
		signals = append(signals, synth.Generate(index, t)...)
	}

	return signals, nil
}

// runStored backtests against previously persisted signals and market data.
func runStored(ctx context.Context, cfg *config.Config, fromTime, toTime string, metrics *observability.Metrics, logger zerolog.Logger) (*orchestrator.RunResult, error) {
	startMs, endMs, err := parseRange(fromTime, toTime)
	if err != nil {
		return nil, err
	}

	var signalStore storage.SignalStore = memory.NewSignalStore()
	var marketStore storage.MarketStore = memory.NewMarketStore()
	var resultStore storage.BacktestResultStore = memory.NewBacktestResultStore()

	if cfg.Postgres.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, err
		}
		signalStore = pgstore.NewSignalStore(pool)
		resultStore = pgstore.NewBacktestResultStore(pool)
	}
	if cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		marketStore = chstore.NewMarketStore(conn)
	}

	o, err := orchestrator.New(orchestrator.Options{
		SignalStore: signalStore,
		MarketStore: marketStore,
		ResultStore: resultStore,
		EngineCfg:   backtestConfig(cfg),
		Symbols:     cfg.Ingestion.Symbols,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, startMs, endMs)
}

func parseRange(fromTime, toTime string) (int64, int64, error) {
	if fromTime == "" {
		return 0, 0, fmt.Errorf("--from-time is required for stored mode")
	}
	from, err := time.Parse(time.RFC3339, fromTime)
	if err != nil {
		return 0, 0, fmt.Errorf("parse from-time: %w", err)
	}

	to := time.Now()
	if toTime != "" {
		to, err = time.Parse(time.RFC3339, toTime)
		if err != nil {
			return 0, 0, fmt.Errorf("parse to-time: %w", err)
		}
	}
	return from.UnixMilli(), to.UnixMilli(), nil
}
