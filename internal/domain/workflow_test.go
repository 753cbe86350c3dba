package domain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stagecheck.dev/pkg/stagecheck/internal/adapter"
	adaptermocks "stagecheck.dev/pkg/stagecheck/internal/adapter/mocks"
	"stagecheck.dev/pkg/stagecheck/internal/controller"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

const singleStepLog = "==== Step #1 ====\nCompiling files:\nsrc/A.kt\nEnd of files\nExit code: OK\n"

type workflowFixture struct {
	wf     Workflow
	runner *adaptermocks.MockBuildRunnerAdapter
	store  adapter.ReportStore
	out    *bytes.Buffer
	root   string
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	store := adapter.NewReportStore()
	runner := adaptermocks.NewMockBuildRunnerAdapter(t)
	policy := DefaultFixturePolicy()
	validator := NewValidator(policy)

	wf := NewWorkflow(
		fsAdapter,
		store,
		controller.NewSimpleUI(cmd, false),
		NewFixtureLoader(fsAdapter),
		NewSeeder(fsAdapter, policy),
		NewOrchestrator(fsAdapter, runner, validator, NewApplier(fsAdapter)),
		validator,
		adapter.NewWorkdirLocker(),
	)

	return &workflowFixture{wf: wf, runner: runner, store: store, out: &out, root: t.TempDir()}
}

// passingProject writes a project whose single stage expects src/A.kt.
func (f *workflowFixture) passingProject(t *testing.T, name string) {
	t.Helper()

	dir := filepath.Join(f.root, name)
	writeFile(t, filepath.Join(dir, "build.log"), singleStepLog)
	writeFile(t, filepath.Join(dir, "A.kt"), "class A")
	writeFile(t, filepath.Join(dir, "A.new.kt"), "class A2")
}

func (f *workflowFixture) unsupportedProject(t *testing.T, name string) {
	t.Helper()

	dir := filepath.Join(f.root, name)
	writeFile(t, filepath.Join(dir, "build.log"), singleStepLog)
	writeFile(t, filepath.Join(dir, "A.kt"), "class A")
	writeFile(t, filepath.Join(dir, "dependencies.txt"), "")
}

func (f *workflowFixture) buildsCompileA(succeeded bool) {
	compiled := m.NewCompiledFiles()
	compiled.Add("src/A.kt")

	f.runner.On("RunBuild", mock.Anything, mock.Anything, mock.Anything).
		Return(m.BuildResult{Succeeded: succeeded, CompiledFiles: compiled, RawOutput: "BUILD"}, nil).Maybe()
}

func (f *workflowFixture) testArgs(reports string) TestArgs {
	return TestArgs{
		Paths:           []m.Path{m.Path(f.root + "/...")},
		Reports:         m.Path(reports),
		Threads:         2,
		TotalShardCount: 1,
		SourceDir:       "src",
	}
}

func statusesByProject(reports []m.RunReport) map[string]m.RunStatus {
	out := make(map[string]m.RunStatus, len(reports))
	for _, report := range reports {
		out[filepath.Base(report.Project)] = report.Status
	}

	return out
}

func TestWorkflow_TestRunsAndSavesReports(t *testing.T) {
	f := newWorkflowFixture(t)
	f.passingProject(t, "a")
	f.passingProject(t, "b")
	f.unsupportedProject(t, "c")
	f.buildsCompileA(true)

	reportsDir := filepath.Join(t.TempDir(), "reports")

	err := f.wf.Test(context.Background(), f.testArgs(reportsDir))
	require.NoError(t, err)

	reports, err := f.store.LoadReports(context.Background(), m.Path(reportsDir))
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, map[string]m.RunStatus{"a": m.Passed, "b": m.Passed, "c": m.Skipped}, statusesByProject(reports))

	for _, report := range reports {
		assert.NotEmpty(t, report.RunID)
	}

	assert.Contains(t, f.out.String(), "2 PASSED, 0 FAILED, 1 SKIPPED")
}

func TestWorkflow_TestReportsFailures(t *testing.T) {
	f := newWorkflowFixture(t)
	f.passingProject(t, "a")
	f.buildsCompileA(false)

	reportsDir := filepath.Join(t.TempDir(), "reports")

	err := f.wf.Test(context.Background(), f.testArgs(reportsDir))
	require.ErrorIs(t, err, ErrProjectsFailed)

	reports, err := f.store.LoadReports(context.Background(), m.Path(reportsDir))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, m.Failed, reports[0].Status)
	assert.Equal(t, m.StateFailed, reports[0].State)
	assert.Contains(t, reports[0].Output, "BUILD")
	assert.Contains(t, f.out.String(), "FAILED")
}

func TestWorkflow_TestWritesShardDirectory(t *testing.T) {
	f := newWorkflowFixture(t)
	f.passingProject(t, "a")
	f.passingProject(t, "b")
	f.buildsCompileA(true)

	reportsDir := filepath.Join(t.TempDir(), "reports")
	args := f.testArgs(reportsDir)
	args.ShardIndex = 1
	args.TotalShardCount = 2

	require.NoError(t, f.wf.Test(context.Background(), args))

	reports, err := f.store.LoadReports(context.Background(), adapter.ShardDir(m.Path(reportsDir), 1))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "b", filepath.Base(reports[0].Project))
}

func TestWorkflow_TestKeepsWorkingCopyInWorkdir(t *testing.T) {
	f := newWorkflowFixture(t)
	f.passingProject(t, "a")
	f.buildsCompileA(true)

	workDir := filepath.Join(t.TempDir(), "work")
	args := f.testArgs(filepath.Join(t.TempDir(), "reports"))
	args.WorkDir = m.Path(workDir)
	args.Keep = true

	require.NoError(t, f.wf.Test(context.Background(), args))

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)

	var kept string

	for _, entry := range entries {
		if entry.IsDir() {
			kept = entry.Name()
		}
	}

	require.NotEmpty(t, kept)
	assert.Equal(t, "class A2", readFile(t, filepath.Join(workDir, kept, "src", "A.kt")))
}

func TestWorkflow_TestRemovesWorkingCopy(t *testing.T) {
	f := newWorkflowFixture(t)
	f.passingProject(t, "a")
	f.buildsCompileA(true)

	workDir := filepath.Join(t.TempDir(), "work")
	args := f.testArgs(filepath.Join(t.TempDir(), "reports"))
	args.WorkDir = m.Path(workDir)

	require.NoError(t, f.wf.Test(context.Background(), args))

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)

	for _, entry := range entries {
		assert.False(t, entry.IsDir(), "working copy %s was left behind", entry.Name())
	}
}

func TestWorkflow_List(t *testing.T) {
	f := newWorkflowFixture(t)
	f.passingProject(t, "a")
	f.unsupportedProject(t, "c")

	err := f.wf.List(context.Background(), ListArgs{Paths: []m.Path{m.Path(f.root + "/...")}})
	require.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, filepath.Join(f.root, "a"))
	assert.Contains(t, out, "skip: multimodule tests are not supported yet")
	assert.Contains(t, out, "1 SUPPORTED")
}

func TestWorkflow_MergeAndView(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	reportsDir := m.Path(filepath.Join(t.TempDir(), "reports"))

	require.NoError(t, f.store.SaveReports(ctx, adapter.ShardDir(reportsDir, 0), []m.RunReport{{Project: "a", Status: m.Passed}}))
	require.NoError(t, f.store.SaveReports(ctx, adapter.ShardDir(reportsDir, 1), []m.RunReport{{Project: "b", Status: m.Failed}}))

	require.NoError(t, f.wf.Merge(ctx, MergeArgs{Reports: reportsDir}))

	reports, err := f.store.LoadReports(ctx, reportsDir)
	require.NoError(t, err)
	assert.Equal(t, map[string]m.RunStatus{"a": m.Passed, "b": m.Failed}, statusesByProject(reports))

	shards, err := f.store.ShardDirs(ctx, reportsDir)
	require.NoError(t, err)
	assert.Empty(t, shards)

	f.out.Reset()
	require.NoError(t, f.wf.View(ctx, ViewArgs{Reports: reportsDir}))
	assert.Contains(t, f.out.String(), "PASSED a")
	assert.Contains(t, f.out.String(), "FAILED b")
}

func TestWorkflow_MergeWithoutShards(t *testing.T) {
	f := newWorkflowFixture(t)

	err := f.wf.Merge(context.Background(), MergeArgs{Reports: m.Path(t.TempDir())})
	require.ErrorIs(t, err, adapter.ErrNoReports)
}

func TestShardProjects(t *testing.T) {
	projects := []m.Path{"a", "b", "c", "d", "e"}

	assert.Equal(t, projects, ShardProjects(projects, 0, 1))
	assert.Equal(t, []m.Path{"a", "c", "e"}, ShardProjects(projects, 0, 2))
	assert.Equal(t, []m.Path{"b", "d"}, ShardProjects(projects, 1, 2))
	assert.Empty(t, ShardProjects(projects, 5, 6))
}

func TestWorkspaceName(t *testing.T) {
	assert.Regexp(t, `^testData_cases_a-[0-9a-f]{8}$`, WorkspaceName("./testData/cases/a"))
	assert.Regexp(t, `^tmp_x_y-[0-9a-f]{8}$`, WorkspaceName("/tmp/x/y"))
	assert.Regexp(t, `^project-[0-9a-f]{8}$`, WorkspaceName("/"))

	assert.Equal(t, WorkspaceName("cases/a"), WorkspaceName("cases/a"))
	assert.NotEqual(t, WorkspaceName("a/b"), WorkspaceName("a_b"))
}

func TestWorkflow_TestSanitizedNameCollisionsRunSeparately(t *testing.T) {
	f := newWorkflowFixture(t)
	f.passingProject(t, "a_b")
	f.passingProject(t, filepath.Join("a", "b"))
	f.buildsCompileA(true)

	args := f.testArgs(filepath.Join(t.TempDir(), "reports"))
	args.WorkDir = m.Path(filepath.Join(t.TempDir(), "work"))

	require.NoError(t, f.wf.Test(context.Background(), args))

	reports, err := f.store.LoadReports(context.Background(), args.Reports)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	for _, report := range reports {
		assert.Equal(t, m.Passed, report.Status, report.Error)
	}
}

func TestWorkflow_TestSkipsUnsupportedWithoutWorkingCopy(t *testing.T) {
	f := newWorkflowFixture(t)
	f.unsupportedProject(t, "c")

	workDir := filepath.Join(t.TempDir(), "work")
	args := f.testArgs(filepath.Join(t.TempDir(), "reports"))
	args.WorkDir = m.Path(workDir)
	args.Keep = true

	require.NoError(t, f.wf.Test(context.Background(), args))

	reports, err := f.store.LoadReports(context.Background(), args.Reports)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, m.Skipped, reports[0].Status)
	assert.Equal(t, m.StateUnsupported, reports[0].State)
	assert.Equal(t, "multimodule tests are not supported yet", reports[0].Reason)
	assert.NotEmpty(t, reports[0].RunID)

	_, err = os.Stat(workDir)
	assert.True(t, os.IsNotExist(err), "working directory was created for a skipped project")
}
