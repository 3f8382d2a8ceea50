package trainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultStatePath = "~/.parley/tune-state.json"

// TuneState tracks the current fine-tune job across process restarts, so
// an interrupted tune command can resume polling instead of resubmitting.
type TuneState struct {
	JobID        string    `json:"job_id"`
	StartedAt    time.Time `json:"started_at"`
	LastPolledAt time.Time `json:"last_polled_at"`
	PairCount    int       `json:"pair_count"`
	LastStatus   string    `json:"last_status"`
	LastLoss     float64   `json:"last_loss"`
	Errors       []string  `json:"errors"`

	path string // not serialized
}

// LoadState loads the tune state from disk, or creates a new one.
func LoadState() (*TuneState, error) {
	p := expandHome(defaultStatePath)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &TuneState{path: p}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s TuneState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = p
	return &s, nil
}

// Save persists the state to disk.
func (s *TuneState) Save() error {
	s.LastPolledAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

// Clear removes the state file after a job reaches a terminal status.
func (s *TuneState) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

// AddError records a polling error.
func (s *TuneState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
