package pipeline

import (
	"github.com/prforge/prforge/internal/results"
)

// Pipeline states. PHASE1_DONE is the durable checkpoint: a later
// invocation may resume directly into PATCHING from persisted state.
const (
	StateInit         = "INIT"
	StateBuilding     = "BUILDING"
	StateBaseTesting  = "BASE_TESTING"
	StatePhase1Done   = "PHASE1_DONE"
	StatePatching     = "PATCHING"
	StatePatchTesting = "PATCH_TESTING"
	StateCategorizing = "CATEGORIZING"
	StateDone         = "DONE"
	StateFailed       = "FAILED"
)

// PipelineState is the durable handoff record between phases. It is
// written by the state machine at phase boundaries and must be loadable
// by a process that did not create it.
type PipelineState struct {
	RunID        string `json:"run_id"`
	Repo         string `json:"repo"`
	PRNumber     int    `json:"pr_number"`
	BaseCommit   string `json:"base_commit"`
	PRCommit     string `json:"pr_commit"`
	TargetBranch string `json:"target_branch"`
	Language     string `json:"language"`
	TestCommand  string `json:"test_command"`
	Parser       string `json:"parser"`

	// Environment artifact reference: content-addressed tag plus the
	// storage location of the exported image.
	ImageTag string `json:"image_tag"`
	ImageURI string `json:"image_uri"`

	RepoPath      string `json:"repo_path"`
	WorkspacePath string `json:"workspace_path"`

	BaseSummary    *results.Summary `json:"base_summary,omitempty"`
	PatchedSummary *results.Summary `json:"patched_summary,omitempty"`
	BuildAttempts  []BuildAttempt   `json:"build_attempts,omitempty"`

	FailToPass []string `json:"fail_to_pass,omitempty"`
	PassToPass []string `json:"pass_to_pass,omitempty"`

	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// BuildAttempt records one construction attempt of the environment
// artifact. The final successful attempt's description is the one that
// produced the persisted image tag.
type BuildAttempt struct {
	Ordinal        int      `json:"ordinal"`
	BaseImage      string   `json:"base_image"`
	Toolchain      string   `json:"toolchain,omitempty"`
	SystemPackages []string `json:"system_packages,omitempty"`
	NoCache        bool     `json:"no_cache,omitempty"`
	Succeeded      bool     `json:"succeeded"`
	Classification string   `json:"classification,omitempty"`
	HealingAction  string   `json:"healing_action,omitempty"`
	LogPath        string   `json:"log_path,omitempty"`
	DurationSecs   float64  `json:"duration_secs"`
}
