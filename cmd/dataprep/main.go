package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carbonwatch/emissions-dataprep/internal/adapter/cog"
	httpadapter "github.com/carbonwatch/emissions-dataprep/internal/adapter/http"
	kafkaadapter "github.com/carbonwatch/emissions-dataprep/internal/adapter/kafka"
	"github.com/carbonwatch/emissions-dataprep/internal/adapter/tabular"
	"github.com/carbonwatch/emissions-dataprep/internal/config"
	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/carbonwatch/emissions-dataprep/internal/observability"
	"github.com/carbonwatch/emissions-dataprep/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var fetcher domain.ImageFetcher = cog.NewClient(cfg.TilerURL, cfg.TilerTimeout, logger, metrics)
	if cfg.TilerCacheSize > 0 {
		fetcher = cog.NewCachedFetcher(fetcher, cfg.TilerCacheSize, metrics)
		logger.Info("image cache enabled", "cache_size", cfg.TilerCacheSize)
	}

	// Manifest publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.ManifestPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("manifest publishing enabled", "topic", cfg.KafkaManifestTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("manifest publishing disabled")
	}

	builder := tabular.NewBuilder(logger)
	module := pipeline.New(cfg, builder, fetcher, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, module, module, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run setup and a verification pass over each split's batches.
	go func() {
		if err := run(ctx, cfg, module, logger); err != nil {
			logger.Error("data prep error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
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

	logger.Info("shutdown complete")
}

// run performs setup for the configured stage and then drains every split
// stream once, which fetches and gates every image so problems surface
// before a training job consumes the data.
func run(ctx context.Context, cfg *config.Config, module *pipeline.DataModule, logger *slog.Logger) error {
	stage := pipeline.Stage(cfg.Stage)
	if err := module.Setup(ctx, stage); err != nil {
		return err
	}

	loaders := map[domain.Split]func() (*pipeline.Loader, error){}
	switch stage {
	case pipeline.StageFit:
		loaders[domain.SplitTrain] = module.TrainLoader
		loaders[domain.SplitVal] = module.ValLoader
	case pipeline.StageTest:
		loaders[domain.SplitTest] = module.TestLoader
	}

	for split, get := range loaders {
		loader, err := get()
		if err != nil {
			return err
		}
		batches, samples := 0, 0
		for res := range loader.Batches(ctx) {
			if res.Err != nil {
				return res.Err
			}
			batches++
			samples += len(res.Batch.Targets)
		}
		logger.Info("verification pass complete",
			"split", split,
			"rows", loader.Len(),
			"samples", samples,
			"batches", batches,
		)
	}
	return nil
}
