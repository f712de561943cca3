package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prforge/prforge/internal/dockercli"
	"github.com/prforge/prforge/internal/results"
)

// Execution modes. In patched mode the container resets its working tree
// and applies the patch before the test command runs.
const (
	ModeBase    = "base"
	ModePatched = "patched"
)

// Container layout shared by every built image.
const (
	containerRepoPath      = "/app/repo"
	containerWorkspacePath = "/workspace"
)

// Sentinel exit codes for the patched-mode preamble, chosen above the
// range test runners use so they cannot collide with test failures.
const (
	exitWorktreeReset = 97
	exitPatchApply    = 98
)

// Request describes one isolated test execution.
type Request struct {
	Image        string
	Command      string
	Parser       string // parser registry key; falls back to generic
	Mode         string // ModeBase or ModePatched
	PatchName    string // file under <workspace>/patches, patched mode only
	WorkspaceDir string // host directory mounted at /workspace
	Timeout      time.Duration
	Memory       string
	CPUs         string
}

// Executor runs test commands inside fresh disposable containers. No two
// executions observe each other's filesystem mutations: every call gets a
// new container from the same immutable image.
type Executor struct {
	docker dockercli.Runner
}

// NewExecutor creates an Executor using the given docker runner.
func NewExecutor(docker dockercli.Runner) *Executor {
	return &Executor{docker: docker}
}

// Execute runs the request and parses the output into a RawOutcome.
// A patch that fails to apply, a container that fails to start, and a
// timeout are ExecErrors, distinct from tests that merely fail.
func (e *Executor) Execute(ctx context.Context, req Request) (*results.RawOutcome, error) {
	script, err := buildScript(req)
	if err != nil {
		return nil, err
	}

	args := []string{
		"run", "--rm",
		"--name", "prforge-" + uuid.NewString()[:8],
	}
	if req.Memory != "" {
		args = append(args, "--memory="+req.Memory)
	}
	if req.CPUs != "" {
		args = append(args, "--cpus="+req.CPUs)
	}
	if req.WorkspaceDir != "" {
		args = append(args, "-v", req.WorkspaceDir+":"+containerWorkspacePath)
	}
	args = append(args, "-w", containerRepoPath, req.Image, "sh", "-c", script)

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, exitCode, err := e.docker.Run(runCtx, args...)
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &ExecError{Kind: KindTimeout, Detail: fmt.Sprintf("timeout after %s", req.Timeout)}
	}
	if err != nil {
		return nil, &ExecError{Kind: KindCrash, Detail: err.Error()}
	}
	switch exitCode {
	case exitWorktreeReset:
		return nil, &ExecError{Kind: KindPatchApply, Detail: "working tree reset failed: " + tail(stderr)}
	case exitPatchApply:
		return nil, &ExecError{Kind: KindPatchApply, Detail: "patch does not apply: " + tail(stderr)}
	case 125, 126, 127:
		// docker run's own failure range: the command never ran.
		return nil, &ExecError{Kind: KindCrash, Detail: fmt.Sprintf("container failed to start (exit %d): %s", exitCode, tail(stderr))}
	}

	outcome := &results.RawOutcome{
		ExitCode:     exitCode,
		Stdout:       stdout,
		Stderr:       stderr,
		Success:      true,
		DurationSecs: duration.Seconds(),
	}

	sets, perr := results.ForName(req.Parser).Parse(stdout, stderr, exitCode)
	if perr != nil {
		// Parser failure degrades to an all-empty outcome; it never
		// crashes the pipeline.
		outcome.ParseDegraded = true
		return outcome, nil
	}
	outcome.Passed = sets.Passed
	outcome.Failed = sets.Failed
	outcome.Skipped = sets.Skipped
	return outcome, nil
}

// buildScript assembles the in-container shell script. The patched-mode
// preamble discards prior working-tree modifications, then applies the
// patch, signalling each failure with its own exit code.
func buildScript(req Request) (string, error) {
	switch req.Mode {
	case ModeBase, "":
		return req.Command, nil
	case ModePatched:
		if req.PatchName == "" {
			return "", fmt.Errorf("patched mode requires a patch name")
		}
		patchPath := containerWorkspacePath + "/patches/" + req.PatchName
		return strings.Join([]string{
			fmt.Sprintf("git checkout -- . || exit %d", exitWorktreeReset),
			fmt.Sprintf("git apply %s || exit %d", patchPath, exitPatchApply),
			req.Command,
		}, "\n"), nil
	}
	return "", fmt.Errorf("unknown mode %q", req.Mode)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 500 {
		return "..." + s[len(s)-500:]
	}
	return s
}
