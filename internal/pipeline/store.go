package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/prforge/prforge/internal/results"
)

// Store manages run state and artifacts on disk. Layout per run:
//
//	<base>/<run-id>/state.json
//	<base>/<run-id>/repo/                     source checkout
//	<base>/<run-id>/artifacts/base/result.json
//	<base>/<run-id>/artifacts/patched/result.json
//	<base>/<run-id>/patches/pr.patch
//	<base>/<run-id>/builds/attempt-N.log
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.prforge/runs, creating the
// directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".prforge", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// RunDir returns the workspace directory for a run.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *Store) statePath(runID string) string {
	return filepath.Join(s.RunDir(runID), "state.json")
}

// RepoDir returns the source checkout directory for a run.
func (s *Store) RepoDir(runID string) string {
	return filepath.Join(s.RunDir(runID), "repo")
}

// ArtifactsDir returns the artifacts directory for one execution mode
// ("base" or "patched").
func (s *Store) ArtifactsDir(runID, mode string) string {
	return filepath.Join(s.RunDir(runID), "artifacts", mode)
}

// PatchesDir returns the directory holding generated patch files.
func (s *Store) PatchesDir(runID string) string {
	return filepath.Join(s.RunDir(runID), "patches")
}

// BuildLogPath returns the log path for one build attempt.
func (s *Store) BuildLogPath(runID string, ordinal int) string {
	return filepath.Join(s.RunDir(runID), "builds", fmt.Sprintf("attempt-%d.log", ordinal))
}

// ImagePath returns the storage location for the exported image tar.
func (s *Store) ImagePath(runID string) string {
	return filepath.Join(s.RunDir(runID), "image.tar")
}

// Create initialises a new run on disk.
func (s *Store) Create(runID, repo string, prNumber int) (*PipelineState, error) {
	dir := s.RunDir(runID)
	if _, err := os.Stat(s.statePath(runID)); err == nil {
		return nil, fmt.Errorf("run %s already exists", runID)
	}
	for _, sub := range []string{"artifacts/base", "artifacts/patched", "patches", "builds"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", sub, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ps := &PipelineState{
		RunID:         runID,
		Repo:          repo,
		PRNumber:      prNumber,
		WorkspacePath: dir,
		Status:        StateInit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := WriteJSON(s.statePath(runID), ps); err != nil {
		return nil, fmt.Errorf("write state.json: %w", err)
	}
	return ps, nil
}

// Get reads the state for a run.
func (s *Store) Get(runID string) (*PipelineState, error) {
	var ps PipelineState
	if err := ReadJSON(s.statePath(runID), &ps); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, err
	}
	return &ps, nil
}

// Update performs a read-modify-write of the run state.
func (s *Store) Update(runID string, fn func(*PipelineState)) (*PipelineState, error) {
	ps, err := s.Get(runID)
	if err != nil {
		return nil, err
	}
	fn(ps)
	ps.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := WriteJSON(s.statePath(runID), ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// List returns all runs, optionally filtered by status.
func (s *Store) List(statusFilter string) ([]PipelineState, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var runs []PipelineState
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ps, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		if statusFilter == "" || ps.Status == statusFilter {
			runs = append(runs, *ps)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].RunID < runs[j].RunID
	})
	return runs, nil
}

// SaveOutcome persists the full raw outcome record for one execution.
func (s *Store) SaveOutcome(runID, mode string, o *results.RawOutcome) error {
	return WriteJSON(filepath.Join(s.ArtifactsDir(runID, mode), "result.json"), o)
}

// GetOutcome reads the persisted raw outcome for one execution.
func (s *Store) GetOutcome(runID, mode string) (*results.RawOutcome, error) {
	var o results.RawOutcome
	if err := ReadJSON(filepath.Join(s.ArtifactsDir(runID, mode), "result.json"), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// SaveCategories writes the final category output for a run.
func (s *Store) SaveCategories(runID string, v interface{}) error {
	return WriteJSON(filepath.Join(s.RunDir(runID), "categories.json"), v)
}
