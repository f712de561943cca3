package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/prforge/prforge/internal/categorize"
	"github.com/prforge/prforge/internal/config"
	"github.com/prforge/prforge/internal/dockercli"
	"github.com/prforge/prforge/internal/envbuild"
	"github.com/prforge/prforge/internal/gitops"
	"github.com/prforge/prforge/internal/lang"
	"github.com/prforge/prforge/internal/patch"
	"github.com/prforge/prforge/internal/pipeline"
	"github.com/prforge/prforge/internal/results"
	"github.com/prforge/prforge/internal/runner"
)

// patchFileName is the single patch artifact generated per run.
const patchFileName = "pr.patch"

// envBuilder constructs and exports the frozen environment.
type envBuilder interface {
	Build(ctx context.Context, req envbuild.Request) (*envbuild.Result, error)
	Export(ctx context.Context, imageTag, outPath string) error
}

// testExecutor runs one isolated test execution.
type testExecutor interface {
	Execute(ctx context.Context, req runner.Request) (*results.RawOutcome, error)
}

// patchManager generates and verifies the patch artifact.
type patchManager interface {
	Generate(ctx context.Context, repoDir, baseRev, prRev, outPath string) (string, error)
	Verify(ctx context.Context, image, workspaceDir, patchName string) error
}

// ledger records observational history. It never influences control flow
// and its errors are logged, not propagated.
type ledger interface {
	RecordEvent(runID, state, detail string) error
	RecordBuildAttempt(runID string, ordinal int, succeeded bool, classification, healingAction string, durationSecs float64) error
	RecordTestRun(runID, mode string, passed, failed, skipped, exitCode int, durationSecs float64) error
}

// Orchestrator drives the two-phase pipeline. Phase 1 freezes the
// environment and measures BASE behavior; phase 2 applies the change and
// categorizes the delta. The phases communicate only through persisted
// state.
type Orchestrator struct {
	store   *pipeline.Store
	docker  dockercli.Runner
	git     gitops.Runner
	builder envBuilder
	exec    testExecutor
	patches patchManager
	ledger  ledger
	cfg     *config.Config
}

// New creates an Orchestrator with the standard component wiring.
func New(store *pipeline.Store, docker dockercli.Runner, git gitops.Runner, l ledger, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:   store,
		docker:  docker,
		git:     git,
		builder: envbuild.NewBuilder(docker),
		exec:    runner.NewExecutor(docker),
		patches: patch.NewManager(git, docker),
		ledger:  l,
		cfg:     cfg,
	}
}

// Phase1Opts holds the inputs to phase 1. Language, TestCommand and
// BaseCommit override detection when set.
type Phase1Opts struct {
	PRURL       string
	RunID       string
	Language    string
	TestCommand string
	BaseCommit  string
}

// Phase1 clones the repository, freezes the environment at the BASE
// revision and runs the baseline test execution. On success the run is
// left in PHASE1_DONE with state a later process can resume from.
func (o *Orchestrator) Phase1(ctx context.Context, opts Phase1Opts) (*pipeline.PipelineState, error) {
	info, err := gitops.ParsePRURL(opts.PRURL)
	if err != nil {
		return nil, err
	}

	runID := opts.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%s-pr-%d", info.Owner, info.Repo, info.PRNumber)
	}

	if _, err := o.store.Create(runID, info.Slug(), info.PRNumber); err != nil {
		return nil, err
	}
	o.event(runID, pipeline.StateInit, "run created for "+opts.PRURL)

	repo, err := gitops.Clone(ctx, o.git, info.CloneURL, o.store.RepoDir(runID))
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("clone: %v", err))
	}
	if err := repo.FetchPRHead(ctx, info.PRNumber); err != nil {
		return nil, o.fail(runID, fmt.Sprintf("fetch pr head: %v", err))
	}

	prCommit, err := repo.RevParse(ctx, fmt.Sprintf("pr-%d", info.PRNumber))
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("resolve pr commit: %v", err))
	}

	targetBranch, err := repo.DefaultBranch(ctx)
	if err != nil {
		// Not fatal; merge-base against origin/HEAD still works.
		targetBranch = ""
	}

	baseCommit := opts.BaseCommit
	if baseCommit == "" {
		ref := "origin/HEAD"
		if targetBranch != "" {
			ref = "origin/" + targetBranch
		}
		baseCommit, err = repo.MergeBase(ctx, ref, prCommit)
		if err != nil {
			return nil, o.fail(runID, fmt.Sprintf("merge-base: %v", err))
		}
	}

	changed, err := repo.ChangedFiles(ctx, baseCommit, prCommit)
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("changed files: %v", err))
	}

	// The environment is always built from the BASE revision; the PR's
	// content only ever enters a container as a patch.
	if err := repo.Checkout(ctx, baseCommit); err != nil {
		return nil, o.fail(runID, fmt.Sprintf("checkout base: %v", err))
	}

	l, err := o.resolveLanguage(opts.Language, repo.Dir(), changed)
	if err != nil {
		return nil, o.fail(runID, err.Error())
	}

	testCmd := opts.TestCommand
	if testCmd == "" {
		testCmd = l.DefaultTestCommand
	}

	imageTag := imageTagFor(info, baseCommit)
	if _, err := o.transition(runID, pipeline.StateBuilding, func(s *pipeline.PipelineState) {
		s.BaseCommit = baseCommit
		s.PRCommit = prCommit
		s.TargetBranch = targetBranch
		s.Language = l.Name
		s.TestCommand = testCmd
		s.Parser = l.Parser
		s.ImageTag = imageTag
		s.RepoPath = repo.Dir()
	}); err != nil {
		return nil, err
	}

	buildRes, buildErr := o.builder.Build(ctx, envbuild.Request{
		Spec:       envbuild.NewSpec(l, o.cfg.Build.BaseImage),
		ContextDir: repo.Dir(),
		ImageTag:   imageTag,
		Budget:     o.cfg.Build.MaxAttempts,
		Timeout:    o.cfg.BuildTimeout(),
		LogDir:     o.store.RunDir(runID) + "/builds",
	})
	o.recordAttempts(runID, buildRes, buildErr)
	if buildErr != nil {
		var be *envbuild.BuildError
		if errors.As(buildErr, &be) {
			return nil, o.fail(runID, fmt.Sprintf("environment build failed: %s", be.Classification))
		}
		return nil, o.fail(runID, fmt.Sprintf("environment build failed: %v", buildErr))
	}

	imageURI := o.store.ImagePath(runID)
	if err := o.builder.Export(ctx, imageTag, imageURI); err != nil {
		return nil, o.fail(runID, fmt.Sprintf("export image: %v", err))
	}

	if _, err := o.transition(runID, pipeline.StateBaseTesting, func(s *pipeline.PipelineState) {
		s.ImageURI = imageURI
	}); err != nil {
		return nil, err
	}

	outcome, err := o.executeTests(ctx, runID, runner.Request{
		Image:        imageTag,
		Command:      testCmd,
		Parser:       l.Parser,
		Mode:         runner.ModeBase,
		WorkspaceDir: o.store.RunDir(runID),
	})
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("base test run: %v", err))
	}
	if err := o.store.SaveOutcome(runID, runner.ModeBase, outcome); err != nil {
		return nil, o.fail(runID, fmt.Sprintf("save base outcome: %v", err))
	}
	o.recordTestRun(runID, runner.ModeBase, outcome)

	summary := results.Summarize(outcome)
	return o.transition(runID, pipeline.StatePhase1Done, func(s *pipeline.PipelineState) {
		s.BaseSummary = &summary
	})
}

// Phase2 resumes from persisted state: it validates the handoff record,
// confirms the frozen environment still exists, generates and verifies
// the patch, runs the patched execution and categorizes the delta. It
// never rebuilds the environment.
func (o *Orchestrator) Phase2(ctx context.Context, runID string) (*pipeline.PipelineState, error) {
	ps, err := o.store.Get(runID)
	if err != nil {
		return nil, err
	}
	switch ps.Status {
	case pipeline.StateDone:
		return ps, nil
	case pipeline.StatePhase1Done:
	default:
		return nil, fmt.Errorf("run %s is in state %s, expected %s", runID, ps.Status, pipeline.StatePhase1Done)
	}

	if err := ps.Validate(); err != nil {
		return nil, o.fail(runID, err.Error())
	}
	if err := o.ensureImage(ctx, ps); err != nil {
		return nil, o.fail(runID, err.Error())
	}

	l, ok := lang.Lookup(ps.Language)
	if !ok {
		return nil, o.fail(runID, fmt.Sprintf("unsupported language %q in persisted state", ps.Language))
	}

	if _, err := o.transition(runID, pipeline.StatePatching, nil); err != nil {
		return nil, err
	}

	patchPath := o.store.PatchesDir(runID) + "/" + patchFileName
	patchText, err := o.patches.Generate(ctx, ps.RepoPath, ps.BaseCommit, ps.PRCommit, patchPath)
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("generate patch: %v", err))
	}
	changes, err := patch.ParseChangeSet(patchText, l)
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("parse change set: %v", err))
	}

	if err := o.patches.Verify(ctx, ps.ImageTag, ps.WorkspacePath, patchFileName); err != nil {
		var drift *patch.DriftError
		if errors.As(err, &drift) {
			return nil, o.fail(runID, "patch drift: patch no longer applies to the frozen environment")
		}
		return nil, o.fail(runID, fmt.Sprintf("verify patch: %v", err))
	}

	if _, err := o.transition(runID, pipeline.StatePatchTesting, nil); err != nil {
		return nil, err
	}

	patched, err := o.executeTests(ctx, runID, runner.Request{
		Image:        ps.ImageTag,
		Command:      ps.TestCommand,
		Parser:       ps.Parser,
		Mode:         runner.ModePatched,
		PatchName:    patchFileName,
		WorkspaceDir: ps.WorkspacePath,
	})
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("patched test run: %v", err))
	}
	if err := o.store.SaveOutcome(runID, runner.ModePatched, patched); err != nil {
		return nil, o.fail(runID, fmt.Sprintf("save patched outcome: %v", err))
	}
	o.recordTestRun(runID, runner.ModePatched, patched)

	if _, err := o.transition(runID, pipeline.StateCategorizing, nil); err != nil {
		return nil, err
	}

	base, err := o.store.GetOutcome(runID, runner.ModeBase)
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("load base outcome: %v", err))
	}

	cats, err := categorize.Categorize(categorize.Input{
		Base:          base,
		Patched:       patched,
		Changes:       changes,
		RelevanceKey:  l.RelevanceKey,
		MinStemLength: o.cfg.Relevance.MinStemLength,
	})
	if err != nil {
		return nil, o.fail(runID, fmt.Sprintf("categorize: %v", err))
	}
	if err := o.store.SaveCategories(runID, cats); err != nil {
		return nil, o.fail(runID, fmt.Sprintf("save categories: %v", err))
	}

	patchedSummary := results.Summarize(patched)
	return o.transition(runID, pipeline.StateDone, func(s *pipeline.PipelineState) {
		s.PatchedSummary = &patchedSummary
		s.FailToPass = cats.FailToPass
		s.PassToPass = cats.PassToPass
	})
}

// Run executes both phases back to back for a fresh PR.
func (o *Orchestrator) Run(ctx context.Context, opts Phase1Opts) (*pipeline.PipelineState, error) {
	ps, err := o.Phase1(ctx, opts)
	if err != nil {
		return nil, err
	}
	return o.Phase2(ctx, ps.RunID)
}

// executeTests runs one test execution, retrying with an extended
// deadline when the only failure is a timeout.
func (o *Orchestrator) executeTests(ctx context.Context, runID string, req runner.Request) (*results.RawOutcome, error) {
	timeout := o.cfg.TestTimeout()
	attempts := 1 + o.cfg.Test.TimeoutRetries

	for i := 1; ; i++ {
		req.Timeout = timeout
		req.Memory = o.cfg.Docker.Memory
		req.CPUs = o.cfg.Docker.CPUs

		outcome, err := o.exec.Execute(ctx, req)
		if err == nil {
			return outcome, nil
		}
		if !runner.IsTimeout(err) || i >= attempts {
			return nil, err
		}
		timeout = time.Duration(float64(timeout) * o.cfg.Test.TimeoutMultiplier)
		o.event(runID, "", fmt.Sprintf("%s run timed out, retrying with %s deadline", req.Mode, timeout))
		log.Printf("run %s: %s execution timed out, retrying with %s", runID, req.Mode, timeout)
	}
}

// ensureImage confirms the environment artifact is usable, restoring it
// from the exported archive if the daemon lost the tag. A missing
// artifact is an ArtifactError, never a rebuild.
func (o *Orchestrator) ensureImage(ctx context.Context, ps *pipeline.PipelineState) error {
	ok, err := dockercli.ImageExists(ctx, o.docker, ps.ImageTag)
	if err != nil {
		return fmt.Errorf("inspect image: %w", err)
	}
	if ok {
		return nil
	}
	if _, statErr := os.Stat(ps.ImageURI); statErr == nil {
		_, stderr, code, runErr := o.docker.Run(ctx, "load", "-i", ps.ImageURI)
		if runErr == nil && code == 0 {
			if ok, err = dockercli.ImageExists(ctx, o.docker, ps.ImageTag); err == nil && ok {
				o.event(ps.RunID, "", "restored environment image from "+ps.ImageURI)
				return nil
			}
		} else if runErr == nil {
			log.Printf("docker load %s exited %d: %s", ps.ImageURI, code, strings.TrimSpace(stderr))
		}
	}
	return &pipeline.ArtifactError{ImageTag: ps.ImageTag}
}

func (o *Orchestrator) resolveLanguage(override, repoDir string, changed []string) (lang.Language, error) {
	if override != "" {
		l, ok := lang.Lookup(override)
		if !ok {
			return lang.Language{}, fmt.Errorf("unsupported language %q (supported: %s)", override, strings.Join(lang.Supported(), ", "))
		}
		return l, nil
	}
	return lang.Detect(repoDir, changed)
}

// transition moves a run to the given state, applying extra mutations
// atomically with the status change.
func (o *Orchestrator) transition(runID, state string, mutate func(*pipeline.PipelineState)) (*pipeline.PipelineState, error) {
	ps, err := o.store.Update(runID, func(s *pipeline.PipelineState) {
		if mutate != nil {
			mutate(s)
		}
		s.Status = state
	})
	if err != nil {
		return nil, err
	}
	o.event(runID, state, "")
	log.Printf("run %s -> %s", runID, state)
	return ps, nil
}

// fail moves a run to FAILED with a reason and returns that reason as an
// error.
func (o *Orchestrator) fail(runID, reason string) error {
	if _, err := o.store.Update(runID, func(s *pipeline.PipelineState) {
		s.Status = pipeline.StateFailed
		s.FailureReason = reason
	}); err != nil {
		log.Printf("record failure for %s: %v", runID, err)
	}
	o.event(runID, pipeline.StateFailed, reason)
	return fmt.Errorf("run %s failed: %s", runID, reason)
}

func (o *Orchestrator) event(runID, state, detail string) {
	if o.ledger == nil {
		return
	}
	if state == "" {
		state = "NOTE"
	}
	if err := o.ledger.RecordEvent(runID, state, detail); err != nil {
		log.Printf("record event: %v", err)
	}
}

// recordAttempts persists build history to both the run state and the
// ledger, regardless of build success.
func (o *Orchestrator) recordAttempts(runID string, res *envbuild.Result, buildErr error) {
	var attempts []pipeline.BuildAttempt
	if res != nil {
		attempts = res.Attempts
	} else {
		var be *envbuild.BuildError
		if errors.As(buildErr, &be) {
			attempts = be.Attempts
		}
	}
	if len(attempts) == 0 {
		return
	}
	if _, err := o.store.Update(runID, func(s *pipeline.PipelineState) {
		s.BuildAttempts = attempts
	}); err != nil {
		log.Printf("record build attempts: %v", err)
	}
	if o.ledger == nil {
		return
	}
	for _, a := range attempts {
		if err := o.ledger.RecordBuildAttempt(runID, a.Ordinal, a.Succeeded, a.Classification, a.HealingAction, a.DurationSecs); err != nil {
			log.Printf("record build attempt: %v", err)
		}
	}
}

func (o *Orchestrator) recordTestRun(runID, mode string, outcome *results.RawOutcome) {
	if o.ledger == nil {
		return
	}
	err := o.ledger.RecordTestRun(runID, mode,
		len(outcome.Passed), len(outcome.Failed), len(outcome.Skipped),
		outcome.ExitCode, outcome.DurationSecs)
	if err != nil {
		log.Printf("record test run: %v", err)
	}
}

// imageTagFor derives the content-addressed tag: the same repository and
// BASE commit always name the same environment.
func imageTagFor(info *gitops.PRInfo, baseCommit string) string {
	short := baseCommit
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("prforge/%s-%s:%s", strings.ToLower(info.Owner), strings.ToLower(info.Repo), short)
}
