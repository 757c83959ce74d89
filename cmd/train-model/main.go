package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/i474232898/air-quality-prediction/internal/common"
	"github.com/i474232898/air-quality-prediction/internal/config"
	"github.com/i474232898/air-quality-prediction/internal/logger"
	"github.com/i474232898/air-quality-prediction/internal/ml"
	"github.com/i474232898/air-quality-prediction/internal/store"
)

func main() {
	cities := flag.String("cities", "",
		"comma-separated cities to train on (default: all active locations)")
	days := flag.Int("days", 0,
		"training window in days (default: TRAINING_WINDOW_DAYS)")
	modelDir := flag.String("model-dir", "",
		"directory for the model artifact (default: MODEL_DIR)")
	lambda := flag.Float64("lambda", ml.DefaultLambda,
		"ridge regularization strength")
	timeout := flag.Duration("timeout", 5*time.Minute,
		"overall training timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *days <= 0 {
		*days = cfg.TrainingWindowDays
	}
	if *modelDir == "" {
		*modelDir = cfg.ModelDir
	}

	zlog, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatalw("failed to open store", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	trainer := ml.NewTrainer(st, zlog, *lambda)
	window := time.Duration(*days) * 24 * time.Hour

	model, _, err := trainer.Train(ctx, common.SplitTrimmed(*cities), window, *modelDir)
	if err != nil {
		zlog.Fatalw("training failed", "error", err)
	}

	zlog.Infow("training complete",
		"model_dir", *modelDir,
		"training_rows", model.TrainingRows,
		"test_rows", model.TestRows,
		"train_r2", model.Metrics.TrainR2,
		"test_r2", model.Metrics.TestR2,
		"mae", model.Metrics.MAE,
		"rmse", model.Metrics.RMSE,
	)
}
