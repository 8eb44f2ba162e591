package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/config"
	"sentiment-lab/internal/reporting"
	"sentiment-lab/internal/storage/migrations"
	pgstore "sentiment-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when omitted)")
	strategy := flag.String("strategy", "", "Restrict the report to one strategy name")
	output := flag.String("output", "markdown", "Output format: markdown or csv")
	outPath := flag.String("out", "", "Write to this path instead of stdout")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "report").Logger()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadWithEnv(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
	}
	if cfg.Postgres.DSN == "" {
		logger.Fatal().Msg("a postgres DSN is required to read stored results")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	gen := reporting.NewGenerator(pgstore.NewBacktestResultStore(pool))

	var report *reporting.Report
	if *strategy != "" {
		report, err = gen.GenerateForStrategy(ctx, *strategy)
	} else {
		report, err = gen.Generate(ctx)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("generate report")
	}

	var rendered string
	switch *output {
	case "markdown":
		rendered = reporting.RenderMarkdown(report)
	case "csv":
		rendered = reporting.RenderCSV(report.Results)
	default:
		logger.Fatal().Str("output", *output).Msg("unknown output format")
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(rendered), 0o644); err != nil {
			logger.Fatal().Err(err).Msg("write report")
		}
		logger.Info().Str("path", *outPath).Msg("report written")
		return
	}
	fmt.Print(rendered)
}
