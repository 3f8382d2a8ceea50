package trainer

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTuneState_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	// Override the default state path for testing.
	s := &TuneState{path: statePath}
	s.JobID = "tune-1"
	s.StartedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.PairCount = 42
	s.LastStatus = "running"
	s.LastLoss = 2.1

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created: %v", err)
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("state file is empty")
	}
}

func TestTuneState_Clear(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	s := &TuneState{path: statePath, JobID: "tune-1"}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Error("state file should be removed")
	}

	// Clearing an already-missing file is not an error.
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear failed: %v", err)
	}
}

func TestTuneState_AddError(t *testing.T) {
	s := &TuneState{}
	s.AddError("poll failed")
	s.AddError("poll failed again")

	if len(s.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(s.Errors))
	}
}
