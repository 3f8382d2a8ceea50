// Package pipeline orchestrates corpus preparation: read records, extract
// adjacent-utterance pairs, materialize the dataset, and optionally persist
// and announce the result.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/parley-ml/parley/internal/bus"
	"github.com/parley-ml/parley/internal/corpus"
	"github.com/parley-ml/parley/internal/pairs"
	"github.com/parley-ml/parley/internal/store"
)

// Config holds the prepare command configuration.
type Config struct {
	CorpusPath string
	Marker     string
	DryRun     bool // extract and report, no DB writes or events
}

// Runner executes the prepare pipeline. Store and bus are optional; with
// neither configured the run is purely in-memory.
type Runner struct {
	cfg    Config
	store  *store.Store
	bus    *bus.Client
	logger *slog.Logger
}

func NewRunner(cfg Config, s *store.Store, b *bus.Client, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  s,
		bus:    b,
		logger: logger,
	}
}

// Run reads the corpus, builds the dataset, persists it when a store is
// configured, and publishes a prepared event. The returned dataset is the
// training source of truth regardless of persistence.
func (r *Runner) Run(ctx context.Context) (pairs.Dataset, error) {
	start := time.Now()

	records, err := corpus.ReadFile(r.cfg.CorpusPath)
	if err != nil {
		return pairs.Dataset{}, fmt.Errorf("read corpus: %w", err)
	}

	r.logger.Info("corpus loaded",
		"path", r.cfg.CorpusPath,
		"records", len(records),
		"marker", r.cfg.Marker,
	)

	ds := pairs.Build(records, r.cfg.Marker)

	// Count records that contributed nothing, for the summary only.
	// Zero-pair records are valid input, not errors.
	skipped := 0
	for _, rec := range records {
		if len(pairs.ExtractPairs(rec, r.cfg.Marker)) == 0 {
			skipped++
		}
	}

	r.logger.Info("dataset materialized",
		"records", len(records),
		"pairs", ds.Len(),
		"zero_pair_records", skipped,
		"duration", time.Since(start).String(),
	)

	if r.store != nil && !r.cfg.DryRun {
		if err := r.persist(ctx, records, ds); err != nil {
			return pairs.Dataset{}, err
		}
	}

	if r.bus != nil && !r.cfg.DryRun {
		if err := r.bus.Publish(bus.SubjectCorpusPrepared, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"path":      r.cfg.CorpusPath,
			"records":   len(records),
			"pairs":     ds.Len(),
		}); err != nil {
			r.logger.Warn("failed to publish prepared event", "error", err)
		}
	}

	fmt.Printf("\n=== Prepare Summary ===\n")
	fmt.Printf("Records read: %d\n", len(records))
	fmt.Printf("Pairs extracted: %d\n", ds.Len())
	fmt.Printf("Zero-pair records: %d\n", skipped)
	fmt.Printf("Duration: %s\n", time.Since(start).Round(time.Millisecond))
	if r.cfg.DryRun {
		fmt.Printf("Mode: DRY RUN (no DB writes, no events)\n")
	}

	return ds, nil
}

func (r *Runner) persist(ctx context.Context, records []corpus.Record, ds pairs.Dataset) error {
	runID, err := r.store.CreateCorpusRun(ctx, r.cfg.CorpusPath, r.cfg.Marker)
	if err != nil {
		return fmt.Errorf("create corpus run: %w", err)
	}

	if err := r.store.WritePairBatch(ctx, runID, ds.Pairs()); err != nil {
		_ = r.store.FinishCorpusRun(ctx, runID, len(records), ds.Len(), "failed")
		return fmt.Errorf("write pairs: %w", err)
	}

	if err := r.store.FinishCorpusRun(ctx, runID, len(records), ds.Len(), "succeeded"); err != nil {
		return fmt.Errorf("finish corpus run: %w", err)
	}

	r.logger.Info("pairs persisted", "run_id", runID, "pairs", ds.Len())
	return nil
}

// HandleCorpusStored is the NATS handler for parley.corpus.stored: a new
// corpus file was dropped, so re-run preparation against it.
func (r *Runner) HandleCorpusStored(subject string, data []byte) {
	ctx := context.Background()

	var evt bus.CorpusStoredEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		r.logger.Error("failed to parse corpus event", "error", err)
		return
	}
	if evt.Path == "" {
		r.logger.Error("corpus event missing path")
		return
	}

	run := *r
	run.cfg.CorpusPath = evt.Path
	if evt.Marker != "" {
		run.cfg.Marker = evt.Marker
	}

	r.logger.Info("corpus stored event received", "path", evt.Path)
	if _, err := run.Run(ctx); err != nil {
		r.logger.Error("event-driven prepare failed", "path", evt.Path, "error", err)
	}
}
