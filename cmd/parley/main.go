package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/parley-ml/parley/internal/api"
	"github.com/parley-ml/parley/internal/bus"
	"github.com/parley-ml/parley/internal/config"
	"github.com/parley-ml/parley/internal/model"
	"github.com/parley-ml/parley/internal/pipeline"
	"github.com/parley-ml/parley/internal/store"
	"github.com/parley-ml/parley/internal/trainer"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "prepare":
		err = runPrepare(cfg, os.Args[2:])
	case "tune":
		err = runTune(cfg, os.Args[2:])
	case "serve":
		err = runServe(cfg)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: parley <prepare|tune|serve> [flags]")
}

// connect opens the optional store and bus connections; either may be
// absent from the config, in which case the pipeline runs without them.
func connect(ctx context.Context, cfg config.Config) (*store.Store, *bus.Client, func()) {
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — running without persistence")
	}

	var nc *bus.Client
	if cfg.NatsURL != "" {
		var err error
		nc, err = bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without events")
	}

	cleanup := func() {
		if nc != nil {
			nc.Close()
		}
		if db != nil {
			db.Close()
		}
	}
	return db, nc, cleanup
}

func prepareFlags(name string, cfg *config.Config) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&cfg.CorpusPath, "corpus", cfg.CorpusPath, "path to the dialogue corpus")
	fs.StringVar(&cfg.Marker, "marker", cfg.Marker, "utterance marker token")
	dryRun := fs.Bool("dry-run", false, "extract and report only, no DB writes or events")
	return fs, dryRun
}

func runPrepare(cfg config.Config, args []string) error {
	fs, dryRun := prepareFlags("prepare", &cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.CorpusPath == "" {
		return fmt.Errorf("corpus path required (PARLEY_CORPUS or -corpus)")
	}

	ctx := context.Background()
	db, nc, cleanup := connect(ctx, cfg)
	defer cleanup()

	runner := pipeline.NewRunner(pipeline.Config{
		CorpusPath: cfg.CorpusPath,
		Marker:     cfg.Marker,
		DryRun:     *dryRun,
	}, db, nc, slog.Default())

	_, err := runner.Run(ctx)
	return err
}

func runTune(cfg config.Config, args []string) error {
	fs, dryRun := prepareFlags("tune", &cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.CorpusPath == "" {
		return fmt.Errorf("corpus path required (PARLEY_CORPUS or -corpus)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, nc, cleanup := connect(ctx, cfg)
	defer cleanup()

	runner := pipeline.NewRunner(pipeline.Config{
		CorpusPath: cfg.CorpusPath,
		Marker:     cfg.Marker,
		DryRun:     *dryRun,
	}, db, nc, slog.Default())

	ds, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	hp := model.Hyperparameters{
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		LearningRate: cfg.LearningRate,
		MaxLength:    cfg.MaxLength,
	}

	if *dryRun {
		slog.Info("dry run — skipping fine-tune submission", "pairs", ds.Len())
		return nil
	}

	tr := trainer.New(model.NewClient(cfg.ModelURL), hp, slog.Default())

	if nc != nil {
		_ = nc.Publish(bus.SubjectTuneStarted, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"pairs":     ds.Len(),
		})
	}

	job, err := tr.Run(ctx, ds)

	var runID uuid.UUID
	if db != nil && job.ID != "" {
		if id, dberr := db.CreateTrainingRun(ctx, job.ID, ds.Len(), hp); dberr != nil {
			slog.Warn("failed to record training run", "error", dberr)
		} else {
			runID = id
		}
	}

	if err != nil {
		if nc != nil {
			_ = nc.Publish(bus.SubjectTuneFailed, map[string]any{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"job_id":    job.ID,
				"error":     err.Error(),
			})
		}
		if db != nil && runID != uuid.Nil {
			_ = db.UpdateTrainingRun(ctx, runID, model.TuneStatusFailed, job.FinalLoss())
		}
		return err
	}

	if db != nil && runID != uuid.Nil {
		if dberr := db.UpdateTrainingRun(ctx, runID, job.Status, job.FinalLoss()); dberr != nil {
			slog.Warn("failed to update training run", "error", dberr)
		}
	}
	if nc != nil {
		_ = nc.Publish(bus.SubjectTuneCompleted, map[string]any{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"job_id":     job.ID,
			"final_loss": job.FinalLoss(),
		})
	}

	slog.Info("tune complete", "job_id", job.ID, "final_loss", job.FinalLoss())
	return nil
}

func runServe(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, nc, cleanup := connect(ctx, cfg)
	defer cleanup()

	runner := model.NewClient(cfg.ModelURL)
	slog.Info("model client ready", "url", cfg.ModelURL)

	// The demo endpoint binds this pure function; the only shared state is
	// the read-only model handle.
	chat := func(ctx context.Context, text string) (string, error) {
		return runner.Chat(ctx, text, cfg.MaxLength, cfg.Temperature)
	}

	pairCount := 0
	if cfg.CorpusPath != "" {
		prep := pipeline.NewRunner(pipeline.Config{
			CorpusPath: cfg.CorpusPath,
			Marker:     cfg.Marker,
			DryRun:     true,
		}, nil, nil, slog.Default())
		if ds, err := prep.Run(ctx); err != nil {
			slog.Warn("corpus preload failed", "error", err)
		} else {
			pairCount = ds.Len()
		}
	}

	// Re-prepare when a new corpus is announced.
	if nc != nil {
		handler := pipeline.NewRunner(pipeline.Config{Marker: cfg.Marker}, db, nc, slog.Default())
		if err := nc.Subscribe(bus.SubjectCorpusStored, handler.HandleCorpusStored); err != nil {
			return fmt.Errorf("subscribe corpus events: %w", err)
		}
	}

	srv := api.NewChatServer(cfg.Port, cfg.APIToken, cfg.ModelURL, pairCount, chat, db, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("parley ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("parley stopped")
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
