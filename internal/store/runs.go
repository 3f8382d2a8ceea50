package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parley-ml/parley/internal/model"
)

// CreateTrainingRun records a submitted fine-tune job.
// Table: training_runs.
func (s *Store) CreateTrainingRun(ctx context.Context, jobID string, pairCount int, hp model.Hyperparameters) (uuid.UUID, error) {
	runID := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO training_runs (id, job_id, pair_count, epochs, batch_size, learning_rate, max_length, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'running', now())`,
		runID, jobID, pairCount, hp.Epochs, hp.BatchSize, hp.LearningRate, hp.MaxLength,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert training run: %w", err)
	}
	return runID, nil
}

// UpdateTrainingRun records a job's terminal status and final loss.
func (s *Store) UpdateTrainingRun(ctx context.Context, runID uuid.UUID, status string, finalLoss float64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE training_runs SET status = $1, final_loss = $2, finished_at = now()
		WHERE id = $3`,
		status, finalLoss, runID,
	)
	if err != nil {
		return fmt.Errorf("update training run: %w", err)
	}
	return nil
}

// WriteChatLog records one demo-endpoint exchange. Best effort: callers
// log and continue on failure.
// Table: chat_logs.
func (s *Store) WriteChatLog(ctx context.Context, userText, responseText string, latency time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_logs (id, user_text, response_text, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), userText, responseText, latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}
