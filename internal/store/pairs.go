package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/parley-ml/parley/internal/pairs"
)

// CreateCorpusRun records the start of a prepare invocation.
// Table: corpus_runs.
func (s *Store) CreateCorpusRun(ctx context.Context, path, marker string) (uuid.UUID, error) {
	runID := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO corpus_runs (id, corpus_path, marker, status, started_at)
		VALUES ($1, $2, $3, 'running', now())`,
		runID, path, marker,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert corpus run: %w", err)
	}
	return runID, nil
}

// FinishCorpusRun closes out a prepare invocation with its final counts.
func (s *Store) FinishCorpusRun(ctx context.Context, runID uuid.UUID, records, pairCount int, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE corpus_runs
		SET status = $1, record_count = $2, pair_count = $3, finished_at = now()
		WHERE id = $4`,
		status, records, pairCount, runID,
	)
	if err != nil {
		return fmt.Errorf("update corpus run: %w", err)
	}
	return nil
}

// WritePairBatch inserts a run's training pairs in one transaction,
// position-indexed so generation order survives the round trip.
// Table: training_pairs.
func (s *Store) WritePairBatch(ctx context.Context, runID uuid.UUID, batch []pairs.TrainingPair) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, p := range batch {
		_, err = tx.Exec(ctx, `
			INSERT INTO training_pairs (id, run_id, position, context, target, created_at)
			VALUES ($1, $2, $3, $4, $5, now())`,
			uuid.New(), runID, i, p.Context, p.Target,
		)
		if err != nil {
			return fmt.Errorf("insert pair %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadPairBatch reads a run's pairs back in position order.
func (s *Store) ReadPairBatch(ctx context.Context, runID uuid.UUID) ([]pairs.TrainingPair, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT context, target FROM training_pairs
		WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var batch []pairs.TrainingPair
	for rows.Next() {
		var p pairs.TrainingPair
		if err := rows.Scan(&p.Context, &p.Target); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pairs: %w", err)
	}
	return batch, nil
}
