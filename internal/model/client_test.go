package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestChat_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		switch r.URL.Path {
		case "/v1/tokenize":
			var req tokenizeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode tokenize request: %v", err)
			}
			if req.Text != "hello" {
				t.Errorf("expected text hello, got %q", req.Text)
			}
			if req.MaxLength != 64 {
				t.Errorf("expected max_length 64, got %d", req.MaxLength)
			}
			json.NewEncoder(w).Encode(tokenizeResponse{TokenIDs: []int{1, 2, 3}, AttentionMask: []int{1, 1, 1}})
		case "/v1/generate":
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode generate request: %v", err)
			}
			if !reflect.DeepEqual(req.TokenIDs, []int{1, 2, 3}) {
				t.Errorf("unexpected token ids: %v", req.TokenIDs)
			}
			json.NewEncoder(w).Encode(generateResponse{TokenIDs: []int{1, 2, 3, 4, 5}})
		case "/v1/decode":
			var req decodeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode decode request: %v", err)
			}
			if !reflect.DeepEqual(req.TokenIDs, []int{1, 2, 3, 4, 5}) {
				t.Errorf("unexpected token ids: %v", req.TokenIDs)
			}
			json.NewEncoder(w).Encode(decodeResponse{Text: "hello world"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL)

	result, err := c.Chat(context.Background(), "hello", 64, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hello world" {
		t.Errorf("expected 'hello world', got %q", result)
	}
}

func TestTokenize_RunnerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "invalid_request",
				"message": "max_length is too large",
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)

	_, _, err := c.Tokenize(context.Background(), "hi", 1<<20)
	if err == nil {
		t.Fatal("expected error for runner error response")
	}
}

func TestSubmitTuneJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tune" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req tuneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode tune request: %v", err)
		}
		if len(req.Contexts) != 2 || len(req.Targets) != 2 {
			t.Errorf("expected 2x2 columns, got %dx%d", len(req.Contexts), len(req.Targets))
		}
		if req.Hyperparameters.Epochs != 3 {
			t.Errorf("expected epochs 3, got %d", req.Hyperparameters.Epochs)
		}
		json.NewEncoder(w).Encode(TuneJob{ID: "tune-1", Status: TuneStatusQueued, Pairs: 2})
	}))
	defer server.Close()

	c := NewClient(server.URL)

	job, err := c.SubmitTuneJob(context.Background(),
		[]string{"a", "b"}, []string{"b", "c"},
		Hyperparameters{Epochs: 3, BatchSize: 16, LearningRate: 5e-5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID != "tune-1" || job.Status != TuneStatusQueued {
		t.Errorf("job = %+v", job)
	}
}

func TestSubmitTuneJob_MismatchedColumns(t *testing.T) {
	c := NewClient("http://unused")

	_, err := c.SubmitTuneJob(context.Background(), []string{"a", "b"}, []string{"b"}, Hyperparameters{})
	if err == nil {
		t.Fatal("expected error for mismatched columns")
	}
}

func TestTuneJobStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tune/tune-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(TuneJob{
			ID:     "tune-1",
			Status: TuneStatusSucceeded,
			Metrics: []TuneMetric{
				{Step: 10, Epoch: 1, TrainingLoss: 2.4},
				{Step: 20, Epoch: 2, TrainingLoss: 1.8},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)

	job, err := c.TuneJobStatus(context.Background(), "tune-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !job.Done() {
		t.Error("expected job to be done")
	}
	if job.FinalLoss() != 1.8 {
		t.Errorf("final loss = %g, want 1.8", job.FinalLoss())
	}
}
