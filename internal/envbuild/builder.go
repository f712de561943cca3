package envbuild

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/prforge/prforge/internal/dockercli"
	"github.com/prforge/prforge/internal/pipeline"
)

// dockerfileName is written into the build context on every attempt.
const dockerfileName = "Dockerfile.preval"

// Request describes one environment build.
type Request struct {
	Spec       EnvSpec
	ContextDir string // source checkout at the BASE revision
	ImageTag   string
	Budget     int // total attempts, healing included
	Timeout    time.Duration
	LogDir     string // per-attempt build logs; empty disables logging
}

// Result is a successful build: the artifact reference, the spec that
// finally built it, and the full attempt history.
type Result struct {
	ImageTag string
	Spec     EnvSpec
	Attempts []pipeline.BuildAttempt
}

// Builder materializes an EnvSpec as a docker image, healing classified
// failures within a bounded attempt budget.
type Builder struct {
	docker dockercli.Runner
}

// NewBuilder creates a Builder using the given docker runner.
func NewBuilder(docker dockercli.Runner) *Builder {
	return &Builder{docker: docker}
}

// Build attempts construction up to req.Budget times. Construction is
// deterministic given (spec, checkout): re-running with the final spec
// against the same context reproduces the environment. Non-healable
// failures stop after a single attempt.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	if req.Budget < 1 {
		req.Budget = 1
	}
	spec := req.Spec
	var attempts []pipeline.BuildAttempt

	for ordinal := 1; ordinal <= req.Budget; ordinal++ {
		attempt := pipeline.BuildAttempt{
			Ordinal:        ordinal,
			BaseImage:      spec.BaseImage,
			Toolchain:      spec.Toolchain,
			SystemPackages: append([]string(nil), spec.SystemPackages...),
			NoCache:        spec.NoCache,
		}

		start := time.Now()
		stderr, err := b.buildOnce(ctx, spec, req)
		attempt.DurationSecs = time.Since(start).Seconds()
		attempt.LogPath = b.writeLog(req, ordinal, stderr)

		if err == nil {
			attempt.Succeeded = true
			attempts = append(attempts, attempt)
			log.Printf("build succeeded on attempt %d: %s", ordinal, req.ImageTag)
			return &Result{ImageTag: req.ImageTag, Spec: spec, Attempts: attempts}, nil
		}

		class := Classify(stderr)
		attempt.Classification = class
		log.Printf("build attempt %d failed: %s", ordinal, class)

		if !Healable(class) || ordinal == req.Budget {
			attempts = append(attempts, attempt)
			return nil, &BuildError{Classification: class, Attempts: attempts, Stderr: stderr}
		}

		healed, action, ok := Heal(spec, class, stderr)
		if !ok {
			// Classified but no mutation derivable; retrying the same
			// spec would loop on a failure healing cannot address.
			attempts = append(attempts, attempt)
			return nil, &BuildError{Classification: class, Attempts: attempts, Stderr: stderr}
		}
		attempt.HealingAction = action
		attempts = append(attempts, attempt)
		log.Printf("healing: %s", action)
		spec = healed
	}

	// Unreachable: the loop always returns.
	return nil, &BuildError{Classification: ClassUnclassified, Attempts: attempts}
}

// buildOnce renders the Dockerfile and runs a single docker build.
func (b *Builder) buildOnce(ctx context.Context, spec EnvSpec, req Request) (string, error) {
	dockerfile, err := Render(spec)
	if err != nil {
		return "", err
	}
	dfPath := filepath.Join(req.ContextDir, dockerfileName)
	if err := os.WriteFile(dfPath, []byte(dockerfile), 0o644); err != nil {
		return "", fmt.Errorf("write dockerfile: %w", err)
	}

	args := []string{"build", "-f", dfPath, "-t", req.ImageTag}
	if spec.NoCache {
		args = append(args, "--no-cache")
	}
	args = append(args, req.ContextDir)

	buildCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	stdout, stderr, code, err := b.docker.Run(buildCtx, args...)
	combined := stdout + stderr
	if err != nil {
		return combined, fmt.Errorf("docker build: %w", err)
	}
	if code != 0 {
		return combined, fmt.Errorf("docker build exited %d", code)
	}
	return combined, nil
}

// writeLog persists one attempt's raw build output. Only the final
// attempt's log is required long-term but all are kept for diagnosis.
func (b *Builder) writeLog(req Request, ordinal int, output string) string {
	if req.LogDir == "" || output == "" {
		return ""
	}
	path := filepath.Join(req.LogDir, fmt.Sprintf("attempt-%d.log", ordinal))
	if err := pipeline.WriteAtomic(path, []byte(output)); err != nil {
		log.Printf("write build log: %v", err)
		return ""
	}
	return path
}

// Export saves the built image to a tar archive, the storage location
// recorded in PipelineState.
func (b *Builder) Export(ctx context.Context, imageTag, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(outPath), err)
	}
	_, stderr, code, err := b.docker.Run(ctx, "save", "-o", outPath, imageTag)
	if err != nil {
		return fmt.Errorf("docker save: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("docker save exited %d: %s", code, stderr)
	}
	return nil
}
