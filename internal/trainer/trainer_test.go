package trainer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parley-ml/parley/internal/corpus"
	"github.com/parley-ml/parley/internal/model"
	"github.com/parley-ml/parley/internal/pairs"
)

func testDataset() pairs.Dataset {
	records := []corpus.Record{
		"The kitchen stinks . __eou__ I'll throw out the garbage . __eou__",
		"I'm exhausted . __eou__ Okay , let's go home . __eou__",
	}
	return pairs.Build(records, "__eou__")
}

func newTestTrainer(t *testing.T, serverURL string) *Trainer {
	t.Helper()
	t.Setenv("HOME", t.TempDir()) // keep the tune state file out of the real home

	tr := New(model.NewClient(serverURL), model.Hyperparameters{
		Epochs:       3,
		BatchSize:    16,
		LearningRate: 5e-5,
		MaxLength:    64,
	}, slog.Default())
	tr.pollInterval = time.Millisecond
	return tr
}

func TestRun_SubmitAndSucceed(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tune":
			json.NewEncoder(w).Encode(model.TuneJob{ID: "tune-1", Status: model.TuneStatusQueued, Pairs: 2})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tune/tune-1":
			n := polls.Add(1)
			job := model.TuneJob{ID: "tune-1", Status: model.TuneStatusRunning}
			if n >= 2 {
				job.Status = model.TuneStatusSucceeded
				job.Metrics = []model.TuneMetric{{Step: 30, Epoch: 3, TrainingLoss: 1.42}}
			}
			json.NewEncoder(w).Encode(job)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tr := newTestTrainer(t, server.URL)

	job, err := tr.Run(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != model.TuneStatusSucceeded {
		t.Errorf("status = %q, want succeeded", job.Status)
	}
	if job.FinalLoss() != 1.42 {
		t.Errorf("final loss = %g, want 1.42", job.FinalLoss())
	}
}

func TestRun_JobFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tune":
			json.NewEncoder(w).Encode(model.TuneJob{ID: "tune-2", Status: model.TuneStatusQueued})
		default:
			json.NewEncoder(w).Encode(model.TuneJob{ID: "tune-2", Status: model.TuneStatusFailed, Error: "loss diverged"})
		}
	}))
	defer server.Close()

	tr := newTestTrainer(t, server.URL)

	_, err := tr.Run(context.Background(), testDataset())
	if err == nil {
		t.Fatal("expected error for failed job")
	}
}

func TestRun_EmptyDataset(t *testing.T) {
	tr := newTestTrainer(t, "http://unused")

	_, err := tr.Run(context.Background(), pairs.Build(nil, "__eou__"))
	if err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestRun_ResumesExistingJob(t *testing.T) {
	var submits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tune":
			submits.Add(1)
			json.NewEncoder(w).Encode(model.TuneJob{ID: "tune-3", Status: model.TuneStatusQueued})
		default:
			json.NewEncoder(w).Encode(model.TuneJob{
				ID:      "tune-3",
				Status:  model.TuneStatusSucceeded,
				Metrics: []model.TuneMetric{{Step: 10, Epoch: 1, TrainingLoss: 2.0}},
			})
		}
	}))
	defer server.Close()

	tr := newTestTrainer(t, server.URL)

	// Seed a state file pointing at an in-flight job.
	s, err := LoadState()
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	s.JobID = "tune-3"
	s.StartedAt = time.Now().UTC()
	if err := s.Save(); err != nil {
		t.Fatalf("save state: %v", err)
	}

	job, err := tr.Run(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != model.TuneStatusSucceeded {
		t.Errorf("status = %q, want succeeded", job.Status)
	}
	if submits.Load() != 0 {
		t.Errorf("expected no resubmission when resuming, got %d submits", submits.Load())
	}
}
