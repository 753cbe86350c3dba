package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stagecheck.dev/pkg/stagecheck/internal/adapter"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// RunSpec is everything the orchestrator needs for one fixture project.
type RunSpec struct {
	Set m.FixtureSet
	// WorkDir is where the build command runs.
	WorkDir m.Path
	// SourceRoot is the directory fixture logical paths are resolved against.
	SourceRoot m.Path
	// Weak accepts builds that recompile more files than expected.
	Weak    bool
	Options m.BuildOptions
}

// Orchestrator drives the validate, build, mutate, build, compare cycle for a
// single seeded working copy.
type Orchestrator interface {
	// Run returns a skipped report with a nil error for unsupported fixture
	// sets, and a failed report with a *StageError on the first violation.
	Run(ctx context.Context, spec RunSpec) (m.RunReport, error)
}

type orchestrator struct {
	fsAdapter   adapter.SourceFSAdapter
	buildRunner adapter.BuildRunnerAdapter
	validator   Validator
	applier     Applier
}

// NewOrchestrator constructs an Orchestrator from its collaborators.
func NewOrchestrator(
	fsAdapter adapter.SourceFSAdapter,
	buildRunner adapter.BuildRunnerAdapter,
	validator Validator,
	applier Applier,
) Orchestrator {
	return &orchestrator{
		fsAdapter:   fsAdapter,
		buildRunner: buildRunner,
		validator:   validator,
		applier:     applier,
	}
}

// runState is the mutable state of one run. Nothing in it outlives Run.
type runState struct {
	spec   RunSpec
	report m.RunReport
	// stage is the modification stage counter; it starts at 1 and moves by
	// one after every mutation application.
	stage  int
	builds int
	output strings.Builder
}

func newRunState(spec RunSpec) *runState {
	return &runState{
		spec:  spec,
		stage: 1,
		report: m.RunReport{
			Project: spec.Set.Name,
			Root:    spec.Set.Root,
			Weak:    spec.Weak,
			State:   m.StateInit,
		},
	}
}

func (r *runState) advance() {
	r.stage++
}

func (r *runState) record(label string, result m.BuildResult) {
	r.builds++
	fmt.Fprintf(&r.output, "=== build #%d (%s): %s ===\n", r.builds, label, outcomePast(result.Succeeded))
	r.output.WriteString(result.RawOutput)

	if !strings.HasSuffix(result.RawOutput, "\n") {
		r.output.WriteString("\n")
	}
}

func (r *runState) fail(phase m.RunState, stage int, err error) (m.RunReport, error) {
	r.report.State = m.StateFailed
	r.report.Status = m.Failed
	r.report.Error = err.Error()
	r.report.Output = r.output.String()

	slog.Error("Run failed", "project", r.spec.Set.Name, "phase", phase, "stage", stage, "error", err)

	return r.report, &StageError{
		Project:    r.spec.Set.Name,
		Phase:      phase,
		Stage:      stage,
		Err:        err,
		Transcript: r.output.String(),
	}
}

func (o *orchestrator) Run(ctx context.Context, spec RunSpec) (m.RunReport, error) {
	run := newRunState(spec)
	start := time.Now()

	report, err := o.run(ctx, run)
	report.Duration = time.Since(start)

	return report, err
}

func (o *orchestrator) run(ctx context.Context, run *runState) (m.RunReport, error) {
	spec := run.spec

	run.report.State = m.StateValidating

	verdict := o.validator.Validate(spec.Set.Fixtures, spec.Set.RawNames)
	if !verdict.Supported {
		slog.Info("Skipping unsupported fixture project", "project", spec.Set.Name, "reason", verdict.Reason)

		run.report.State = m.StateUnsupported
		run.report.Status = m.Skipped
		run.report.Reason = verdict.Reason

		return run.report, nil
	}

	run.report.State = m.StateInitialBuild

	initial, err := o.build(ctx, run, "initial")
	if err != nil {
		return run.fail(m.StateInitialBuild, 0, err)
	}

	if !initial.Succeeded {
		return run.fail(m.StateInitialBuild, 0, &OutcomeMismatchError{
			Expected: m.BuildStep{CompileSucceeded: true, CompiledFiles: m.NewCompiledFiles()},
			Actual:   initial,
		})
	}

	run.report.State = m.StateParsingLog

	buildLog, err := o.loadBuildLog(ctx, spec.Set)
	if err != nil {
		return run.fail(m.StateParsingLog, 0, err)
	}

	logBuildLog(spec.Set.Name, buildLog)

	run.report.State = m.StateCycling

	for _, expected := range buildLog {
		stage := run.stage

		if err := o.cycle(ctx, run, stage, expected); err != nil {
			return run.fail(m.StateCycling, stage, err)
		}
	}

	run.report.State = m.StateDone
	run.report.Status = m.Passed

	return run.report, nil
}

// cycle applies the mutations of stage, rebuilds and compares the outcome.
func (o *orchestrator) cycle(ctx context.Context, run *runState, stage int, expected m.BuildStep) error {
	spec := run.spec

	applied, err := o.applier.Apply(ctx, spec.Set.Fixtures, spec.SourceRoot, stage)
	run.advance()

	stageReport := m.StageReport{
		Stage:           stage,
		Applied:         o.describeApplied(ctx, spec.WorkDir, applied),
		ExpectSucceeded: expected.CompileSucceeded,
		Expected:        expected.CompiledFiles.Lists(),
	}

	if err != nil {
		run.report.Stages = append(run.report.Stages, stageReport)
		return err
	}

	result, err := o.build(ctx, run, fmt.Sprintf("stage %d", stage))
	if err != nil {
		run.report.Stages = append(run.report.Stages, stageReport)
		return err
	}

	stageReport.Succeeded = result.Succeeded
	stageReport.Actual = result.CompiledFiles.Lists()

	cmpErr := compareOutcome(stage, expected, result, spec.Weak)
	stageReport.Matched = cmpErr == nil
	run.report.Stages = append(run.report.Stages, stageReport)

	slog.Debug("Stage finished", "project", spec.Set.Name, "stage", stage, "applied", len(applied), "succeeded", result.Succeeded, "matched", stageReport.Matched)

	return cmpErr
}

func (o *orchestrator) build(ctx context.Context, run *runState, label string) (m.BuildResult, error) {
	slog.Debug("Running build", "project", run.spec.Set.Name, "build", label, "workDir", run.spec.WorkDir)

	result, err := o.buildRunner.RunBuild(ctx, run.spec.WorkDir, run.spec.Options)
	run.record(label, result)

	if err != nil {
		return result, fmt.Errorf("run build: %w", err)
	}

	return result, nil
}

func (o *orchestrator) loadBuildLog(ctx context.Context, set m.FixtureSet) (m.BuildLog, error) {
	if set.BuildLog == "" {
		return nil, fmt.Errorf("%s: %w", set.Root, ErrMissingBuildLog)
	}

	content, err := o.fsAdapter.ReadFile(ctx, set.BuildLog)
	if err != nil {
		return nil, fmt.Errorf("read build log: %w", err)
	}

	buildLog, err := ParseBuildLog(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", set.BuildLog, err)
	}

	return buildLog, nil
}

func (o *orchestrator) describeApplied(ctx context.Context, workDir m.Path, applied []m.AppliedMutation) []string {
	if len(applied) == 0 {
		return nil
	}

	out := make([]string, 0, len(applied))

	for _, mutation := range applied {
		target := mutation.Target
		if rel, err := o.fsAdapter.RelPath(ctx, workDir, target); err == nil {
			target = rel
		}

		out = append(out, fmt.Sprintf("%s %s", mutation.Directive, target))
	}

	return out
}

func logBuildLog(project string, buildLog m.BuildLog) {
	slog.Info("Build log parsed", "project", project, "steps", len(buildLog))

	for i, step := range buildLog {
		slog.Debug("Build log stage",
			"project", project,
			"stage", i+1,
			"outcome", outcomePast(step.CompileSucceeded),
			"kotlin", step.CompiledFiles.Of(m.KindKotlin).Sorted(),
			"java", step.CompiledFiles.Of(m.KindJava).Sorted(),
		)
	}
}

// IsSkip reports whether err means the run was intentionally not executed.
func IsSkip(report m.RunReport, err error) bool {
	return err == nil && report.Status == m.Skipped
}

// Transcript returns the accumulated build output carried by err, if any.
func Transcript(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Transcript
	}

	return ""
}
