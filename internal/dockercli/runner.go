package dockercli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner abstracts docker CLI invocation for testability.
type Runner interface {
	Run(ctx context.Context, args ...string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements Runner by shelling out to the docker binary.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec docker: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// ImageExists reports whether an image tag is present in the local daemon.
func ImageExists(ctx context.Context, r Runner, tag string) (bool, error) {
	_, _, code, err := r.Run(ctx, "image", "inspect", tag)
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

// Available reports whether the docker daemon is reachable.
func Available(ctx context.Context, r Runner) bool {
	_, _, code, err := r.Run(ctx, "info")
	return err == nil && code == 0
}
