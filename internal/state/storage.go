// Package state persists run records and generated artifacts in the local
// tree. Run records live under .pagewright/runs/, one JSON file per run;
// generated sites land in site/ (or site/preview/ for preview runs).
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact locations relative to the store's base path.
const (
	runsDirName    = "runs"
	stateDirName   = ".pagewright"
	siteDirName    = "site"
	previewDirName = "preview"
	artifactName   = "index.html"
)

// Store handles local run storage operations.
type Store struct {
	basePath string
}

// NewStore creates a Store rooted at basePath. Records are stored in
// .pagewright/runs/ beneath it.
func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// runsDir returns the path to the runs directory.
func (s *Store) runsDir() string {
	return filepath.Join(s.basePath, stateDirName, runsDirName)
}

// runPath returns the record path for a run ID.
func (s *Store) runPath(id string) string {
	return filepath.Join(s.runsDir(), sanitizeID(id)+".json")
}

// sanitizeID converts a run ID to a safe file name. Replaces "/" with "-"
// so a hostile ID cannot escape the runs directory.
func sanitizeID(id string) string {
	return strings.ReplaceAll(id, "/", "-")
}

// SaveRun writes the run record, creating the runs directory if needed.
// Saving an existing ID overwrites the record, which is how status updates
// are persisted.
func (s *Store) SaveRun(record *RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no ID")
	}

	if err := os.MkdirAll(s.runsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := os.WriteFile(s.runPath(record.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	return nil
}

// GetRun reads one run record by ID.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse run record: %w", err)
	}
	return &record, nil
}

// ListRuns returns all run records, newest first. Unreadable or invalid
// files are skipped.
func (s *Store) ListRuns() ([]*RunRecord, error) {
	entries, err := os.ReadDir(s.runsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*RunRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var records []*RunRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.runsDir(), entry.Name()))
		if err != nil {
			continue
		}

		var record RunRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

// LatestRun returns the most recently started run, or nil when no runs
// have been recorded.
func (s *Store) LatestRun() (*RunRecord, error) {
	records, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// ArtifactPath returns where a generated site lands for the given
// generation type ("full" publishes, anything else previews).
func (s *Store) ArtifactPath(generation string) string {
	if generation == "full" {
		return filepath.Join(s.basePath, siteDirName, artifactName)
	}
	return filepath.Join(s.basePath, siteDirName, previewDirName, artifactName)
}

// WriteArtifact writes the generated HTML to its destination and returns
// the path written.
func (s *Store) WriteArtifact(html, generation string) (string, error) {
	path := s.ArtifactPath(generation)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}
