package patch

import (
	"context"
	"fmt"
	"os"

	"github.com/prforge/prforge/internal/dockercli"
	"github.com/prforge/prforge/internal/gitops"
	"github.com/prforge/prforge/internal/pipeline"
)

// DriftError reports a patch that no longer applies cleanly to the
// frozen environment. It short-circuits the pipeline before the
// expensive patched test run.
type DriftError struct {
	Detail string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("patch drift: %s", e.Detail)
}

// Manager computes and verifies the patch artifact for a run. The patch
// is generated once and immutable; verification is a dry run and may be
// repeated with the same result.
type Manager struct {
	git    gitops.Runner
	docker dockercli.Runner
}

// NewManager creates a Manager with the given git and docker runners.
func NewManager(git gitops.Runner, docker dockercli.Runner) *Manager {
	return &Manager{git: git, docker: docker}
}

// Generate writes the BASE→PR diff to outPath and returns its text.
// The diff is binary-safe and carries full blob identifiers, so applying
// it depends only on the declared base revision.
func (m *Manager) Generate(ctx context.Context, repoDir, baseRev, prRev, outPath string) (string, error) {
	repo := gitops.NewRepo(m.git, repoDir)
	text, err := repo.Diff(ctx, baseRev, prRev)
	if err != nil {
		return "", fmt.Errorf("generate patch: %w", err)
	}
	if err := pipeline.WriteAtomic(outPath, []byte(text)); err != nil {
		return "", fmt.Errorf("write patch: %w", err)
	}
	return text, nil
}

// Verify dry-runs the patch inside a disposable container of the same
// environment artifact used for testing. A non-nil *DriftError means the
// patch does not apply; other errors are infrastructure failures.
func (m *Manager) Verify(ctx context.Context, image, workspaceDir, patchName string) error {
	hostPath := workspaceDir + "/patches/" + patchName
	info, err := os.Stat(hostPath)
	if err != nil {
		return fmt.Errorf("stat patch: %w", err)
	}
	if info.Size() == 0 {
		// Nothing to apply.
		return nil
	}

	_, stderr, code, err := m.docker.Run(ctx,
		"run", "--rm",
		"-v", workspaceDir+":/workspace",
		"-w", "/app/repo",
		image,
		"git", "apply", "--check", "/workspace/patches/"+patchName,
	)
	if err != nil {
		return fmt.Errorf("verify patch: %w", err)
	}
	if code != 0 {
		return &DriftError{Detail: stderr}
	}
	return nil
}
