package pipeline

import "fmt"

// StateError reports invalid or incomplete persisted state. Phase 2
// fails fast with the missing field named instead of substituting a
// default.
type StateError struct {
	Field  string
	Reason string
}

func (e *StateError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid pipeline state: missing required field %q", e.Field)
	}
	return fmt.Sprintf("invalid pipeline state: %s", e.Reason)
}

// ArtifactError reports a referenced environment artifact that no longer
// exists. The pipeline never silently rebuilds in its place.
type ArtifactError struct {
	ImageTag string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("referenced environment missing: image %q not found", e.ImageTag)
}

// Validate checks that every field phase 2 depends on is present.
func (s *PipelineState) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"repo", s.Repo},
		{"base_commit", s.BaseCommit},
		{"pr_commit", s.PRCommit},
		{"language", s.Language},
		{"test_command", s.TestCommand},
		{"image_tag", s.ImageTag},
		{"image_uri", s.ImageURI},
		{"repo_path", s.RepoPath},
		{"workspace_path", s.WorkspacePath},
	}
	for _, f := range required {
		if f.value == "" {
			return &StateError{Field: f.name}
		}
	}
	if s.PRNumber == 0 {
		return &StateError{Field: "pr_number"}
	}
	if s.BaseSummary == nil {
		return &StateError{Field: "base_summary"}
	}
	return nil
}
