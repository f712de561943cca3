package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prforge/prforge/internal/results"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	ps, err := s.Create("acme-widgets-pr-42", "acme/widgets", 42)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ps.RunID != "acme-widgets-pr-42" {
		t.Errorf("RunID = %q", ps.RunID)
	}
	if ps.Repo != "acme/widgets" {
		t.Errorf("Repo = %q", ps.Repo)
	}
	if ps.PRNumber != 42 {
		t.Errorf("PRNumber = %d", ps.PRNumber)
	}
	if ps.Status != StateInit {
		t.Errorf("Status = %q, want %q", ps.Status, StateInit)
	}
	if ps.WorkspacePath != s.RunDir("acme-widgets-pr-42") {
		t.Errorf("WorkspacePath = %q", ps.WorkspacePath)
	}
	if ps.CreatedAt == "" {
		t.Error("CreatedAt should not be empty")
	}

	// The run layout must exist up front.
	for _, sub := range []string{"artifacts/base", "artifacts/patched", "patches", "builds"} {
		if _, err := os.Stat(filepath.Join(s.RunDir(ps.RunID), sub)); err != nil {
			t.Errorf("missing run directory %s: %v", sub, err)
		}
	}

	// Round-trip through disk.
	got, err := s.Get("acme-widgets-pr-42")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Repo != "acme/widgets" {
		t.Errorf("Get Repo = %q", got.Repo)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("run-1", "a/b", 1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create("run-1", "a/b", 1); err == nil {
		t.Error("duplicate Create should fail")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("missing"); err == nil {
		t.Error("Get on missing run should fail")
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("run-1", "a/b", 1); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ps, err := s.Update("run-1", func(st *PipelineState) {
		st.Status = StateBuilding
		st.Language = "go"
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ps.Status != StateBuilding || ps.Language != "go" {
		t.Errorf("updated state = %+v", ps)
	}

	got, err := s.Get("run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StateBuilding {
		t.Errorf("persisted Status = %q", got.Status)
	}
	if got.UpdatedAt == "" {
		t.Error("UpdatedAt should be set")
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"run-b", "run-a", "run-c"} {
		if _, err := s.Create(id, "a/b", 1); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	if _, err := s.Update("run-c", func(st *PipelineState) { st.Status = StateDone }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List = %d runs, want 3", len(all))
	}
	if all[0].RunID != "run-a" {
		t.Errorf("List not sorted: first = %q", all[0].RunID)
	}

	done, err := s.List(StateDone)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(done) != 1 || done[0].RunID != "run-c" {
		t.Errorf("filtered List = %+v", done)
	}
}

func TestOutcomeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("run-1", "a/b", 1); err != nil {
		t.Fatalf("Create: %v", err)
	}

	o := &results.RawOutcome{
		Passed:   []string{"TestA"},
		Failed:   []string{"TestB"},
		ExitCode: 1,
		Success:  true,
	}
	if err := s.SaveOutcome("run-1", "base", o); err != nil {
		t.Fatalf("SaveOutcome: %v", err)
	}
	got, err := s.GetOutcome("run-1", "base")
	if err != nil {
		t.Fatalf("GetOutcome: %v", err)
	}
	if got.Executed() != 2 || got.ExitCode != 1 {
		t.Errorf("round-tripped outcome = %+v", got)
	}

	if _, err := s.GetOutcome("run-1", "patched"); err == nil {
		t.Error("GetOutcome for unsaved mode should fail")
	}
}

func TestValidate(t *testing.T) {
	full := func() *PipelineState {
		sum := results.Summary{Passed: 1, TestsExecuted: 1}
		return &PipelineState{
			Repo: "a/b", PRNumber: 7,
			BaseCommit: "abc", PRCommit: "def",
			Language: "go", TestCommand: "go test ./...",
			ImageTag: "prforge/a-b:abc", ImageURI: "/runs/x/image.tar",
			RepoPath: "/runs/x/repo", WorkspacePath: "/runs/x",
			BaseSummary: &sum,
		}
	}

	if err := full().Validate(); err != nil {
		t.Fatalf("complete state should validate: %v", err)
	}

	tests := []struct {
		field  string
		mutate func(*PipelineState)
	}{
		{"repo", func(s *PipelineState) { s.Repo = "" }},
		{"base_commit", func(s *PipelineState) { s.BaseCommit = "" }},
		{"pr_commit", func(s *PipelineState) { s.PRCommit = "" }},
		{"language", func(s *PipelineState) { s.Language = "" }},
		{"test_command", func(s *PipelineState) { s.TestCommand = "" }},
		{"image_tag", func(s *PipelineState) { s.ImageTag = "" }},
		{"image_uri", func(s *PipelineState) { s.ImageURI = "" }},
		{"repo_path", func(s *PipelineState) { s.RepoPath = "" }},
		{"workspace_path", func(s *PipelineState) { s.WorkspacePath = "" }},
		{"pr_number", func(s *PipelineState) { s.PRNumber = 0 }},
		{"base_summary", func(s *PipelineState) { s.BaseSummary = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			ps := full()
			tt.mutate(ps)
			err := ps.Validate()
			var se *StateError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StateError", err)
			}
			if se.Field != tt.field {
				t.Errorf("Field = %q, want %q", se.Field, tt.field)
			}
		})
	}
}

func TestWriteAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := WriteAtomic(path, []byte("first")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := WriteAtomic(path, []byte("second")); err != nil {
		t.Fatalf("WriteAtomic overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q", data)
	}
	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}
