package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prforge/prforge/internal/config"
	"github.com/prforge/prforge/internal/envbuild"
	"github.com/prforge/prforge/internal/pipeline"
	"github.com/prforge/prforge/internal/results"
	"github.com/prforge/prforge/internal/runner"
)

// fakeGit answers each git subcommand with a canned response.
type fakeGit struct {
	responses map[string]string
	calls     []string
}

func (f *fakeGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	if out, ok := f.responses[args[0]]; ok {
		return out, nil
	}
	return "", nil
}

// fakeDocker succeeds every call by default; failCmds maps a subcommand
// to a nonzero exit code.
type fakeDocker struct {
	failCmds map[string]int
	calls    []string
}

func (f *fakeDocker) Run(ctx context.Context, args ...string) (string, string, int, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	if code, ok := f.failCmds[args[0]]; ok {
		return "", "fail", code, nil
	}
	return "", "", 0, nil
}

type fakeBuilder struct {
	err      error
	exported []string
}

func (f *fakeBuilder) Build(ctx context.Context, req envbuild.Request) (*envbuild.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &envbuild.Result{
		ImageTag: req.ImageTag,
		Spec:     req.Spec,
		Attempts: []pipeline.BuildAttempt{{Ordinal: 1, Succeeded: true, BaseImage: req.Spec.BaseImage}},
	}, nil
}

func (f *fakeBuilder) Export(ctx context.Context, imageTag, outPath string) error {
	f.exported = append(f.exported, outPath)
	return nil
}

type fakeExec struct {
	outcomes []*results.RawOutcome
	errs     []error
	requests []runner.Request
}

func (f *fakeExec) Execute(ctx context.Context, req runner.Request) (*results.RawOutcome, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.outcomes) {
		return f.outcomes[i], nil
	}
	return &results.RawOutcome{Success: true}, nil
}

type fakePatches struct {
	patchText string
	verifyErr error
}

func (f *fakePatches) Generate(ctx context.Context, repoDir, baseRev, prRev, outPath string) (string, error) {
	if err := pipeline.WriteAtomic(outPath, []byte(f.patchText)); err != nil {
		return "", err
	}
	return f.patchText, nil
}

func (f *fakePatches) Verify(ctx context.Context, image, workspaceDir, patchName string) error {
	return f.verifyErr
}

type recordingLedger struct {
	events []string
}

func (r *recordingLedger) RecordEvent(runID, state, detail string) error {
	r.events = append(r.events, state)
	return nil
}
func (r *recordingLedger) RecordBuildAttempt(string, int, bool, string, string, float64) error {
	return nil
}
func (r *recordingLedger) RecordTestRun(string, string, int, int, int, int, float64) error {
	return nil
}

const goPatch = `diff --git a/internal/auth/login.go b/internal/auth/login.go
index 0000000000000000000000000000000000000000..1111111111111111111111111111111111111111 100644
--- a/internal/auth/login.go
+++ b/internal/auth/login.go
@@ -1,2 +1,3 @@
 package auth
+// changed
`

func testConfig() *config.Config {
	var c config.Config
	c.Build.MaxAttempts = 3
	c.Build.Timeout = "20m"
	c.Build.BaseImage = "ubuntu:24.04"
	c.Test.Timeout = "30m"
	c.Test.TimeoutRetries = 1
	c.Test.TimeoutMultiplier = 1.5
	c.Docker.Memory = "8g"
	c.Docker.CPUs = "4"
	c.Relevance.MinStemLength = 4
	return &c
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *pipeline.Store, *fakeExec, *recordingLedger) {
	t.Helper()
	store := pipeline.NewStore(t.TempDir())
	git := &fakeGit{responses: map[string]string{
		"rev-parse":    "facefeedfacefeedfacefeedfacefeedfacefeed\n",
		"symbolic-ref": "refs/remotes/origin/main\n",
		"merge-base":   "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef\n",
		"diff":         "internal/auth/login.go\n",
	}}
	exec := &fakeExec{}
	ledger := &recordingLedger{}
	o := &Orchestrator{
		store:   store,
		docker:  &fakeDocker{},
		git:     git,
		builder: &fakeBuilder{},
		exec:    exec,
		patches: &fakePatches{patchText: goPatch},
		ledger:  ledger,
		cfg:     testConfig(),
	}
	return o, store, exec, ledger
}

func TestPhase1HappyPath(t *testing.T) {
	o, store, exec, _ := newTestOrchestrator(t)
	exec.outcomes = []*results.RawOutcome{{
		Passed:  []string{"pkg/auth.TestLogin"},
		Failed:  []string{"pkg/auth.TestExpired"},
		Success: true,
	}}

	ps, err := o.Phase1(context.Background(), Phase1Opts{
		PRURL:       "https://github.com/acme/widgets/pull/42",
		Language:    "go",
		TestCommand: "go test ./...",
	})
	if err != nil {
		t.Fatalf("Phase1: %v", err)
	}

	if ps.Status != pipeline.StatePhase1Done {
		t.Errorf("Status = %q, want %q", ps.Status, pipeline.StatePhase1Done)
	}
	if ps.RunID != "acme-widgets-pr-42" {
		t.Errorf("RunID = %q", ps.RunID)
	}
	if ps.BaseCommit != "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef" {
		t.Errorf("BaseCommit = %q", ps.BaseCommit)
	}
	if ps.PRCommit != "facefeedfacefeedfacefeedfacefeedfacefeed" {
		t.Errorf("PRCommit = %q", ps.PRCommit)
	}
	if ps.ImageTag != "prforge/acme-widgets:deadbeefdead" {
		t.Errorf("ImageTag = %q", ps.ImageTag)
	}
	if ps.ImageURI == "" {
		t.Error("ImageURI not recorded")
	}
	if ps.BaseSummary == nil || ps.BaseSummary.TestsExecuted != 2 {
		t.Errorf("BaseSummary = %+v", ps.BaseSummary)
	}
	if len(ps.BuildAttempts) != 1 || !ps.BuildAttempts[0].Succeeded {
		t.Errorf("BuildAttempts = %+v", ps.BuildAttempts)
	}
	if err := ps.Validate(); err != nil {
		t.Errorf("phase 1 output should be phase-2 ready: %v", err)
	}

	// Base outcome persisted in full.
	base, err := store.GetOutcome(ps.RunID, runner.ModeBase)
	if err != nil {
		t.Fatalf("GetOutcome: %v", err)
	}
	if base.Executed() != 2 {
		t.Errorf("persisted base outcome = %+v", base)
	}

	// The base run executes from the immutable image with no patch.
	if exec.requests[0].Mode != runner.ModeBase || exec.requests[0].PatchName != "" {
		t.Errorf("base request = %+v", exec.requests[0])
	}
}

func TestPhase1BuildFailure(t *testing.T) {
	o, store, _, _ := newTestOrchestrator(t)
	o.builder = &fakeBuilder{err: &envbuild.BuildError{
		Classification: envbuild.ClassUnclassified,
		Attempts:       []pipeline.BuildAttempt{{Ordinal: 1}},
	}}

	_, err := o.Phase1(context.Background(), Phase1Opts{
		PRURL:    "https://github.com/acme/widgets/pull/42",
		Language: "go",
	})
	if err == nil {
		t.Fatal("expected failure")
	}

	ps, err := store.Get("acme-widgets-pr-42")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ps.Status != pipeline.StateFailed {
		t.Errorf("Status = %q, want FAILED", ps.Status)
	}
	if !strings.Contains(ps.FailureReason, "unclassified") {
		t.Errorf("FailureReason = %q", ps.FailureReason)
	}
	if len(ps.BuildAttempts) != 1 {
		t.Errorf("failed attempts not recorded: %+v", ps.BuildAttempts)
	}
}

func TestPhase1TimeoutRetry(t *testing.T) {
	o, _, exec, _ := newTestOrchestrator(t)
	exec.errs = []error{&runner.ExecError{Kind: runner.KindTimeout, Detail: "30m"}}
	exec.outcomes = []*results.RawOutcome{nil, {Passed: []string{"pkg/a.TestX"}, Success: true}}

	ps, err := o.Phase1(context.Background(), Phase1Opts{
		PRURL:    "https://github.com/acme/widgets/pull/42",
		Language: "go",
	})
	if err != nil {
		t.Fatalf("Phase1: %v", err)
	}
	if ps.Status != pipeline.StatePhase1Done {
		t.Errorf("Status = %q", ps.Status)
	}
	if len(exec.requests) != 2 {
		t.Fatalf("executions = %d, want retry after timeout", len(exec.requests))
	}
	if exec.requests[1].Timeout <= exec.requests[0].Timeout {
		t.Errorf("retry timeout %v not extended beyond %v", exec.requests[1].Timeout, exec.requests[0].Timeout)
	}
}

func TestPhase1TimeoutRetryExhausted(t *testing.T) {
	o, store, exec, _ := newTestOrchestrator(t)
	timeout := &runner.ExecError{Kind: runner.KindTimeout, Detail: "30m"}
	exec.errs = []error{timeout, timeout}

	_, err := o.Phase1(context.Background(), Phase1Opts{
		PRURL:    "https://github.com/acme/widgets/pull/42",
		Language: "go",
	})
	if err == nil {
		t.Fatal("expected failure after exhausting timeout retries")
	}
	if len(exec.requests) != 2 {
		t.Errorf("executions = %d, want 2", len(exec.requests))
	}
	ps, _ := store.Get("acme-widgets-pr-42")
	if ps.Status != pipeline.StateFailed {
		t.Errorf("Status = %q", ps.Status)
	}
}

// phase1Done sets up a run already at the PHASE1_DONE checkpoint.
func phase1Done(t *testing.T, o *Orchestrator, store *pipeline.Store) *pipeline.PipelineState {
	t.Helper()
	exec := o.exec.(*fakeExec)
	exec.outcomes = []*results.RawOutcome{{
		Passed:  []string{"pkg/auth.TestLogin"},
		Failed:  []string{"pkg/auth.TestExpired"},
		Success: true,
	}}
	ps, err := o.Phase1(context.Background(), Phase1Opts{
		PRURL:       "https://github.com/acme/widgets/pull/42",
		Language:    "go",
		TestCommand: "go test ./...",
	})
	if err != nil {
		t.Fatalf("Phase1: %v", err)
	}
	return ps
}

func TestPhase2HappyPath(t *testing.T) {
	o, store, exec, _ := newTestOrchestrator(t)
	ps := phase1Done(t, o, store)

	exec.outcomes = append(exec.outcomes, &results.RawOutcome{
		Passed:  []string{"pkg/auth.TestLogin", "pkg/auth.TestExpired"},
		Success: true,
	})

	final, err := o.Phase2(context.Background(), ps.RunID)
	if err != nil {
		t.Fatalf("Phase2: %v", err)
	}
	if final.Status != pipeline.StateDone {
		t.Errorf("Status = %q, want DONE", final.Status)
	}
	if len(final.FailToPass) != 1 || final.FailToPass[0] != "pkg/auth.TestExpired" {
		t.Errorf("FailToPass = %v", final.FailToPass)
	}
	if len(final.PassToPass) != 1 || final.PassToPass[0] != "pkg/auth.TestLogin" {
		t.Errorf("PassToPass = %v", final.PassToPass)
	}
	if final.PatchedSummary == nil || final.PatchedSummary.Passed != 2 {
		t.Errorf("PatchedSummary = %+v", final.PatchedSummary)
	}

	// The patched run applies the generated patch inside the container.
	patched := exec.requests[len(exec.requests)-1]
	if patched.Mode != runner.ModePatched || patched.PatchName != patchFileName {
		t.Errorf("patched request = %+v", patched)
	}
}

func TestPhase2WrongState(t *testing.T) {
	o, store, _, _ := newTestOrchestrator(t)
	if _, err := store.Create("run-1", "a/b", 1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := o.Phase2(context.Background(), "run-1"); err == nil {
		t.Error("Phase2 on INIT run should fail")
	}
	// The run itself is untouched, not failed.
	ps, _ := store.Get("run-1")
	if ps.Status != pipeline.StateInit {
		t.Errorf("Status = %q, want INIT preserved", ps.Status)
	}
}

func TestPhase2InvalidState(t *testing.T) {
	o, store, _, _ := newTestOrchestrator(t)
	ps := phase1Done(t, o, store)

	// Corrupt the checkpoint: drop a required field.
	if _, err := store.Update(ps.RunID, func(s *pipeline.PipelineState) {
		s.TestCommand = ""
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := o.Phase2(context.Background(), ps.RunID)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "test_command") {
		t.Errorf("error should name the missing field, got %v", err)
	}
	got, _ := store.Get(ps.RunID)
	if got.Status != pipeline.StateFailed {
		t.Errorf("Status = %q, want FAILED", got.Status)
	}
}

func TestPhase2MissingImage(t *testing.T) {
	o, store, _, _ := newTestOrchestrator(t)
	ps := phase1Done(t, o, store)

	// Image tag gone from the daemon and no archive on disk.
	o.docker = &fakeDocker{failCmds: map[string]int{"image": 1, "load": 1}}
	if _, err := store.Update(ps.RunID, func(s *pipeline.PipelineState) {
		s.ImageURI = "/nonexistent/image.tar"
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := o.Phase2(context.Background(), ps.RunID)
	if err == nil {
		t.Fatal("expected artifact failure")
	}
	if !strings.Contains(err.Error(), "referenced environment missing") {
		t.Errorf("err = %v", err)
	}
	got, _ := store.Get(ps.RunID)
	if got.Status != pipeline.StateFailed {
		t.Errorf("Status = %q", got.Status)
	}
}

func TestPhase2VerifyFailure(t *testing.T) {
	o, store, _, _ := newTestOrchestrator(t)
	ps := phase1Done(t, o, store)

	o.patches = &fakePatches{
		patchText: goPatch,
		verifyErr: fmt.Errorf("verify patch: container unavailable"),
	}
	if _, err := o.Phase2(context.Background(), ps.RunID); err == nil {
		t.Fatal("expected verification failure")
	}
	got, _ := store.Get(ps.RunID)
	if got.Status != pipeline.StateFailed {
		t.Errorf("Status = %q", got.Status)
	}
}

func TestPhase2AlreadyDone(t *testing.T) {
	o, store, exec, _ := newTestOrchestrator(t)
	ps := phase1Done(t, o, store)
	exec.outcomes = append(exec.outcomes, &results.RawOutcome{
		Passed: []string{"pkg/auth.TestLogin", "pkg/auth.TestExpired"}, Success: true,
	})
	if _, err := o.Phase2(context.Background(), ps.RunID); err != nil {
		t.Fatalf("Phase2: %v", err)
	}

	before := len(exec.requests)
	final, err := o.Phase2(context.Background(), ps.RunID)
	if err != nil {
		t.Fatalf("repeat Phase2: %v", err)
	}
	if final.Status != pipeline.StateDone {
		t.Errorf("Status = %q", final.Status)
	}
	if len(exec.requests) != before {
		t.Error("repeat Phase2 re-executed tests on a DONE run")
	}
}

func TestLedgerRecordsTransitions(t *testing.T) {
	o, store, _, ledger := newTestOrchestrator(t)
	phase1Done(t, o, store)

	want := []string{pipeline.StateInit, pipeline.StateBuilding, pipeline.StateBaseTesting, pipeline.StatePhase1Done}
	var seen []string
	for _, s := range ledger.events {
		for _, w := range want {
			if s == w {
				seen = append(seen, s)
				break
			}
		}
	}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("ledger transitions = %v, want %v in order", seen, want)
	}
}
