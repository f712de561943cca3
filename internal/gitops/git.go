package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner abstracts git invocation for testability.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (stdout string, err error)
}

// ExecGit implements Runner by shelling out to git.
type ExecGit struct{}

func (g *ExecGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		return stdoutBuf.String(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderrBuf.String()))
	}
	return stdoutBuf.String(), nil
}

// Repo wraps git operations on one working directory.
type Repo struct {
	git Runner
	dir string
}

// NewRepo wraps an existing checkout.
func NewRepo(git Runner, dir string) *Repo {
	return &Repo{git: git, dir: dir}
}

// Dir returns the working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// Clone clones url into dir and returns the Repo.
func Clone(ctx context.Context, git Runner, url, dir string) (*Repo, error) {
	if _, err := git.Run(ctx, "", "clone", url, dir); err != nil {
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}
	return &Repo{git: git, dir: dir}, nil
}

// FetchPRHead fetches the PR's head ref into a local branch.
func (r *Repo) FetchPRHead(ctx context.Context, prNumber int) error {
	ref := fmt.Sprintf("refs/pull/%d/head:pr-%d", prNumber, prNumber)
	if _, err := r.git.Run(ctx, r.dir, "fetch", "origin", ref); err != nil {
		return fmt.Errorf("fetch pr %d: %w", prNumber, err)
	}
	return nil
}

// RevParse resolves a ref to a full commit id.
func (r *Repo) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := r.git.Run(ctx, r.dir, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// MergeBase returns the merge base of two revisions, the BASE commit the
// environment is built against.
func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := r.git.Run(ctx, r.dir, "merge-base", a, b)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DefaultBranch returns the remote's default branch name.
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	out, err := r.git.Run(ctx, r.dir, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.TrimSpace(out), "refs/remotes/origin/"), nil
}

// Checkout checks out a revision.
func (r *Repo) Checkout(ctx context.Context, rev string) error {
	if _, err := r.git.Run(ctx, r.dir, "checkout", "--force", rev); err != nil {
		return fmt.Errorf("checkout %s: %w", rev, err)
	}
	return nil
}

// ChangedFiles lists the paths modified between two revisions.
func (r *Repo) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	out, err := r.git.Run(ctx, r.dir, "diff", "--name-only", base+".."+head)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// Diff produces the binary-safe diff between two revisions with full
// blob identifiers, so application never depends on ambient state beyond
// the declared base.
func (r *Repo) Diff(ctx context.Context, base, head string) (string, error) {
	return r.git.Run(ctx, r.dir, "diff", "--binary", "--full-index", base+".."+head)
}
