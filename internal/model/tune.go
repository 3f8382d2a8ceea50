package model

import (
	"context"
	"fmt"
	"net/http"
)

// Hyperparameters configures a fine-tuning job on the runner.
type Hyperparameters struct {
	// Epochs is the number of full passes over the training pairs.
	Epochs int `json:"epochs,omitempty"`

	// BatchSize is the number of pairs processed per optimizer step.
	BatchSize int `json:"batch_size,omitempty"`

	// LearningRate for the optimizer.
	LearningRate float64 `json:"learning_rate,omitempty"`

	// MaxLength is the token length contexts and targets are truncated or
	// padded to by the runner's tokenizer.
	MaxLength int `json:"max_length,omitempty"`
}

// Tune job statuses reported by the runner.
const (
	TuneStatusQueued    = "queued"
	TuneStatusRunning   = "running"
	TuneStatusSucceeded = "succeeded"
	TuneStatusFailed    = "failed"
	TuneStatusCancelled = "cancelled"
)

// TuneJob is the runner's view of a fine-tuning job.
type TuneJob struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	Pairs      int          `json:"pairs"`
	CreatedAt  int64        `json:"created_at"`
	FinishedAt int64        `json:"finished_at,omitempty"`
	Metrics    []TuneMetric `json:"metrics,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// TuneMetric is one progress sample from the training loop.
type TuneMetric struct {
	Step         int     `json:"step"`
	Epoch        int     `json:"epoch"`
	TrainingLoss float64 `json:"train_loss"`
}

// Done reports whether the job reached a terminal status.
func (j TuneJob) Done() bool {
	switch j.Status {
	case TuneStatusSucceeded, TuneStatusFailed, TuneStatusCancelled:
		return true
	}
	return false
}

// FinalLoss returns the last reported training loss, or 0 if none.
func (j TuneJob) FinalLoss() float64 {
	if len(j.Metrics) == 0 {
		return 0
	}
	return j.Metrics[len(j.Metrics)-1].TrainingLoss
}

type tuneRequest struct {
	Contexts        []string        `json:"contexts"`
	Targets         []string        `json:"targets"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
}

// SubmitTuneJob hands the aligned context/target columns to the runner and
// starts a fine-tuning job. Tokenization, truncation, and padding are the
// runner's responsibility.
func (c *Client) SubmitTuneJob(ctx context.Context, contexts, targets []string, hp Hyperparameters) (TuneJob, error) {
	if len(contexts) != len(targets) {
		return TuneJob{}, fmt.Errorf("column length mismatch: %d contexts vs %d targets", len(contexts), len(targets))
	}

	var job TuneJob
	err := c.post(ctx, "/v1/tune", tuneRequest{
		Contexts:        contexts,
		Targets:         targets,
		Hyperparameters: hp,
	}, &job)
	if err != nil {
		return TuneJob{}, fmt.Errorf("submit tune job: %w", err)
	}
	return job, nil
}

// TuneJobStatus fetches the current state of a fine-tuning job.
func (c *Client) TuneJobStatus(ctx context.Context, jobID string) (TuneJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tune/"+jobID, nil)
	if err != nil {
		return TuneJob{}, fmt.Errorf("create request: %w", err)
	}

	var job TuneJob
	if err := c.do(req, &job); err != nil {
		return TuneJob{}, fmt.Errorf("tune job status: %w", err)
	}
	return job, nil
}
