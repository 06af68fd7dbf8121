package db

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sabrimoh/erdash/pkg/metadata"
)

// Snapshot is a serialized set of metadata rows. It lets the site be rebuilt
// without a live database and is what the dashboard's watch mode observes.
type Snapshot struct {
	CapturedAt time.Time      `json:"captured_at"`
	Schema     string         `json:"schema"`
	Rows       []metadata.Row `json:"rows"`
}

// WriteSnapshot saves metadata rows to a JSON file, creating parent
// directories as needed.
func WriteSnapshot(path, schema string, rows []metadata.Row) error {
	snap := Snapshot{
		CapturedAt: time.Now().UTC(),
		Schema:     schema,
		Rows:       rows,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads metadata rows from a JSON snapshot file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}
