// Package trainer submits a prepared dataset to the model runner as a
// fine-tuning job and follows the job to a terminal status. The runner
// owns the training loop itself; parley only tracks progress.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parley-ml/parley/internal/model"
	"github.com/parley-ml/parley/internal/pairs"
)

const defaultPollInterval = 10 * time.Second

// Trainer orchestrates one fine-tune run against the model runner.
type Trainer struct {
	client       *model.Client
	hp           model.Hyperparameters
	pollInterval time.Duration
	logger       *slog.Logger
}

func New(client *model.Client, hp model.Hyperparameters, logger *slog.Logger) *Trainer {
	return &Trainer{
		client:       client,
		hp:           hp,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// Run submits the dataset's context/target columns and polls until the job
// reaches a terminal status or ctx is cancelled. Progress is saved to the
// tune state file after every poll, so an interrupted run resumes polling
// the same job instead of resubmitting the dataset.
func (t *Trainer) Run(ctx context.Context, ds pairs.Dataset) (model.TuneJob, error) {
	if ds.Len() == 0 {
		return model.TuneJob{}, fmt.Errorf("empty dataset: nothing to train on")
	}

	state, err := LoadState()
	if err != nil {
		return model.TuneJob{}, fmt.Errorf("load state: %w", err)
	}

	var job model.TuneJob
	if state.JobID != "" {
		t.logger.Info("resuming fine-tune job", "job_id", state.JobID, "last_status", state.LastStatus)
		job, err = t.client.TuneJobStatus(ctx, state.JobID)
		if err != nil {
			return model.TuneJob{}, fmt.Errorf("resume job %s: %w", state.JobID, err)
		}
	} else {
		job, err = t.client.SubmitTuneJob(ctx, ds.Contexts(), ds.Targets(), t.hp)
		if err != nil {
			return model.TuneJob{}, fmt.Errorf("submit: %w", err)
		}
		state.JobID = job.ID
		state.StartedAt = time.Now().UTC()
		state.PairCount = ds.Len()
		t.logger.Info("fine-tune job submitted",
			"job_id", job.ID,
			"pairs", ds.Len(),
			"epochs", t.hp.Epochs,
			"batch_size", t.hp.BatchSize,
		)
	}

	job, err = t.poll(ctx, state, job)
	if err != nil {
		// Interrupted mid-flight: keep the state file so the next run
		// resumes polling this job.
		_ = state.Save()
		return job, err
	}

	// Terminal either way: the state file has served its purpose.
	if err := state.Clear(); err != nil {
		t.logger.Warn("failed to clear tune state", "error", err)
	}

	if job.Status != model.TuneStatusSucceeded {
		return job, fmt.Errorf("job %s %s: %s", job.ID, job.Status, job.Error)
	}
	return job, nil
}

func (t *Trainer) poll(ctx context.Context, state *TuneState, job model.TuneJob) (model.TuneJob, error) {
	for {
		state.LastStatus = job.Status
		state.LastLoss = job.FinalLoss()
		if err := state.Save(); err != nil {
			t.logger.Warn("failed to save tune state", "error", err)
		}

		if job.Done() {
			t.logger.Info("fine-tune job finished",
				"job_id", job.ID,
				"status", job.Status,
				"final_loss", job.FinalLoss(),
			)
			return job, nil
		}

		t.logger.Info("fine-tune job in progress",
			"job_id", job.ID,
			"status", job.Status,
			"loss", job.FinalLoss(),
		)

		select {
		case <-ctx.Done():
			t.logger.Info("tune interrupted, state saved for resume", "job_id", job.ID)
			return job, ctx.Err()
		case <-time.After(t.pollInterval):
		}

		next, err := t.client.TuneJobStatus(ctx, job.ID)
		if err != nil {
			state.AddError(fmt.Sprintf("poll %s: %v", job.ID, err))
			t.logger.Warn("poll failed, will retry", "job_id", job.ID, "error", err)
			continue
		}
		job = next
	}
}
