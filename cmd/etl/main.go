package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/tide-data-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/tide-data-etl/internal/adapter/hko"
	"github.com/couchcryptid/tide-data-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/tide-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/tide-data-etl/internal/config"
	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/observability"
	"github.com/couchcryptid/tide-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	client := hko.NewClient(cfg.SourceURL, cfg.FetchTimeout, cfg.FetchRetries, logger, metrics)
	fetcher := hko.NewCachedFetcher(client, cfg.HTMLPath, cfg.CacheMaxAge, clock, logger, metrics)

	loaders := []pipeline.BatchLoader{csvfile.NewLongSink(cfg.LongCSV)}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	stages := pipeline.Stages{
		Fetcher:     fetcher,
		Transformer: pipeline.NewTransformer(domain.NewReshaper(cfg.Year, cfg.Location), logger),
		Wide:        csvfile.NewWideSink(cfg.WideCSV),
		Loaders:     loaders,
	}
	p := pipeline.New(stages, clock, logger, metrics, cfg.RefreshInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting tide etl",
		"source_url", cfg.SourceURL,
		"year", cfg.Year,
		"timezone", cfg.TimeZone,
		"wide_csv", cfg.WideCSV,
		"long_csv", cfg.LongCSV,
		"http_addr", cfg.HTTPAddr,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		if writer != nil {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
