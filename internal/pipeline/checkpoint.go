package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is the run-state snapshot persisted after every recorded
// completion, enabling a crashed or interrupted run to resume.
type Checkpoint struct {
	Timestamp      time.Time                 `json:"timestamp"`
	CurrentNode    string                    `json:"current_node"`
	CompletedNodes []string                  `json:"completed_nodes"`
	NodeRetries    map[string]int            `json:"node_retries"`
	NodeOutcomes   map[string]Outcome        `json:"node_outcomes"`
	ContextValues  map[string]interface{}    `json:"context_values"`
	Logs           []string                  `json:"logs"`
}

func checkpointPath(logsRoot string) string {
	return filepath.Join(logsRoot, "checkpoint.json")
}

// SaveCheckpoint writes the checkpoint as a whole-file overwrite,
// flushed before returning, mirroring the WAL writer's durability
// posture without its append-only log shape — a checkpoint is a
// snapshot, not a journal.
func SaveCheckpoint(logsRoot string, cp Checkpoint) error {
	if err := os.MkdirAll(logsRoot, 0o755); err != nil {
		return fmt.Errorf("create logs root: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := checkpointPath(logsRoot) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return os.Rename(tmp, checkpointPath(logsRoot))
}

// LoadCheckpoint reads a previously saved checkpoint; ok is false when
// none exists.
func LoadCheckpoint(logsRoot string) (cp Checkpoint, ok bool, err error) {
	data, readErr := os.ReadFile(checkpointPath(logsRoot))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, readErr
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}

// Manifest is the static run-description file written once at run start.
type Manifest struct {
	Name      string    `json:"name"`
	Goal      string    `json:"goal"`
	Label     string    `json:"label"`
	StartTime time.Time `json:"start_time"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}

func SaveManifest(logsRoot string, m Manifest) error {
	if err := os.MkdirAll(logsRoot, 0o755); err != nil {
		return fmt.Errorf("create logs root: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(logsRoot, "manifest.json"), data, 0o644)
}
