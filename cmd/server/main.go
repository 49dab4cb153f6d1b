package main

// Package main is the entry point for the sentinel-ai server.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Bootstrap the anomaly detector: restore the latest persisted model
//     snapshot when one exists, otherwise train on synthetic telemetry
//   - Start the HTTP server (predict, retrain, model info, health,
//     telemetry stream, Prometheus metrics)
//   - Watch the config file and apply log level changes at runtime
//   - Shut down gracefully on SIGINT/SIGTERM

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/solarsentinel/sentinel-ai/internal/config"
	"github.com/solarsentinel/sentinel-ai/internal/logging"
	"github.com/solarsentinel/sentinel-ai/internal/model"
	"github.com/solarsentinel/sentinel-ai/internal/server"
	"github.com/solarsentinel/sentinel-ai/internal/store"
	"github.com/solarsentinel/sentinel-ai/internal/telemetry"
)

const bootstrapTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sentinel-ai: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("SENTINEL_CONFIG")
	manager := config.NewManager(configPath)

	cfg, err := manager.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, level, err := logging.New(*cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer log.Sync()

	log.Info("starting sentinel-ai",
		zap.String("model_version", model.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	var st *store.Store
	if cfg.Model.StorePath != "" {
		st, err = store.Open(cfg.Model.StorePath)
		if err != nil {
			return fmt.Errorf("open model store: %w", err)
		}
		defer st.Close()
	}

	detector := model.NewDetector(model.Hyperparameters{
		Contamination: cfg.Model.Contamination,
		NumTrees:      cfg.Model.NumTrees,
		SampleSize:    cfg.Model.SampleSize,
		Seed:          cfg.Model.Seed,
	})

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	if err := bootstrap(ctx, log, detector, st, cfg); err != nil {
		cancel()
		return fmt.Errorf("bootstrap model: %w", err)
	}
	cancel()

	srv, err := server.New(cfg, log, detector, st)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	// Config file edits adjust the log level without a restart.
	manager.Watch(func(updated config.Config) {
		if err := level.UnmarshalText([]byte(updated.Logging.Level)); err != nil {
			log.Warn("invalid log level in updated config",
				zap.String("level", updated.Logging.Level))
			return
		}
		log.Info("log level updated", zap.String("level", updated.Logging.Level))
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// bootstrap gets the detector into a trained state before the server
// accepts traffic. A persisted snapshot wins over retraining; with no
// snapshot the detector trains on synthetic telemetry and the result
// is persisted for the next start.
func bootstrap(ctx context.Context, log *zap.Logger, detector *model.Detector, st *store.Store, cfg *config.Config) error {
	if st != nil {
		err := detector.Load(ctx, st)
		if err == nil {
			log.Info("model restored from snapshot",
				zap.Int("training_samples", detector.TrainingSamples()))
			return nil
		}
		if !errors.Is(err, store.ErrNoSnapshot) {
			log.Warn("snapshot restore failed, retraining", zap.Error(err))
		}
	}

	log.Info("training model on synthetic telemetry",
		zap.Int("samples", cfg.Bootstrap.Samples),
		zap.Int64("seed", cfg.Bootstrap.Seed),
	)
	start := time.Now()

	readings := telemetry.Generate(cfg.Bootstrap.Samples, cfg.Bootstrap.Seed)
	validation, err := detector.Train(readings)
	if err != nil {
		return err
	}

	log.Info("model trained",
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("precision", validation.Precision),
		zap.Float64("recall", validation.Recall),
		zap.Float64("f1", validation.F1Score),
	)

	if st != nil {
		if err := detector.Save(ctx, st); err != nil {
			log.Warn("snapshot save failed", zap.Error(err))
		}
	}
	return nil
}
