package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-schoolzone-scan/internal/artifact"
	"github.com/mr1hm/go-schoolzone-scan/internal/classify"
	"github.com/mr1hm/go-schoolzone-scan/internal/config"
	"github.com/mr1hm/go-schoolzone-scan/internal/imagery"
	"github.com/mr1hm/go-schoolzone-scan/internal/logging"
	"github.com/mr1hm/go-schoolzone-scan/internal/pipeline"
	"github.com/mr1hm/go-schoolzone-scan/internal/repository"
	"github.com/mr1hm/go-schoolzone-scan/internal/roads"
	"github.com/mr1hm/go-schoolzone-scan/internal/schools"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("scan starting", "run", cfg.Run.ID, "region", cfg.Dataset.Region)

	store, err := artifact.NewStore(cfg.Run.DataDir, cfg.Run.ID)
	if err != nil {
		logging.Fatalf("Failed to initialize artifact store: %v", err)
	}

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := roads.NewOverpassProvider(cfg.Roads.OverpassURL, cfg.Roads.SearchRadiusM, cfg.Roads.Timeout)
	inference := classify.NewHTTPInferenceClient(cfg.Classifier.InferenceURL, cfg.Classifier.Timeout)

	runner := pipeline.NewRunner(
		schools.NewLocator(cfg.Dataset, nil, store),
		roads.NewStage(provider, roads.NewSampler(cfg.Roads.Step), store),
		imagery.NewFetcher(cfg.Imagery, store),
		classify.NewStage(cfg.Classifier, inference, store),
		pipeline.NewPersistStage(db, store),
	)

	if err := runner.Run(ctx); err != nil {
		logging.Fatalf("Pipeline run failed: %v", err)
	}

	slog.Info("scan complete", "run", cfg.Run.ID)
}
