package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stagecheck.dev/pkg/stagecheck/internal/adapter"
	"stagecheck.dev/pkg/stagecheck/internal/controller"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
	"stagecheck.dev/pkg/stagecheck/pkg"
)

// ErrProjectsFailed is returned by Test when at least one project failed.
var ErrProjectsFailed = errors.New("fixture projects failed")

// TestArgs contains the arguments for running fixture projects.
type TestArgs struct {
	Paths           []m.Path
	Exclude         []string
	Reports         m.Path
	Threads         uint
	ShardIndex      uint
	TotalShardCount uint
	Weak            bool
	Build           m.BuildOptions
	// SourceDir is the directory inside each working copy receiving sources.
	SourceDir string
	Template  m.Path
	// WorkDir holds the working copies; empty means fresh temp directories.
	WorkDir m.Path
	// Keep leaves working copies on disk after the run.
	Keep bool
}

// ListArgs contains the arguments for listing fixture projects.
type ListArgs struct {
	Paths   []m.Path
	Exclude []string
}

// ViewArgs contains the arguments for displaying saved reports.
type ViewArgs struct {
	Reports m.Path
}

// MergeArgs contains the arguments for merging sharded reports.
type MergeArgs struct {
	Reports m.Path
}

// Workflow is the entry point used by the CLI commands.
type Workflow interface {
	Test(ctx context.Context, args TestArgs) error
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
	Merge(ctx context.Context, args MergeArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ReportStore
	controller.UI
	FixtureLoader
	Seeder
	Orchestrator
	validator Validator
	locker    *adapter.WorkdirLocker
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	loader FixtureLoader,
	seeder Seeder,
	orchestrator Orchestrator,
	validator Validator,
	locker *adapter.WorkdirLocker,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		UI:              ui,
		FixtureLoader:   loader,
		Seeder:          seeder,
		Orchestrator:    orchestrator,
		validator:       validator,
		locker:          locker,
	}
}

func (w *workflow) Test(ctx context.Context, args TestArgs) error {
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start UI: %w", err)
	}
	defer w.Close(ctx)

	projects, err := w.Discover(ctx, args.Paths, args.Exclude)
	if err != nil {
		return fmt.Errorf("discover fixture projects: %w", err)
	}

	shard := ShardProjects(projects, args.ShardIndex, args.TotalShardCount)

	threads := args.Threads
	if threads == 0 {
		threads = 1
	}

	w.DisplayConcurrencyInfo(ctx, int(threads), int(args.ShardIndex), int(max(args.TotalShardCount, 1)), len(shard))

	spill, err := pkg.NewFileSpill[m.RunReport]("")
	if err != nil {
		return fmt.Errorf("create report spill: %w", err)
	}

	defer func() {
		if err := spill.Close(); err != nil {
			slog.Error("Failed to close report spill", "error", err)
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(int(threads))

	for _, root := range shard {
		group.Go(func() error {
			report := w.runProject(groupCtx, root, args)
			w.DisplayRunReport(groupCtx, report)

			return spill.Append(report)
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("run fixture projects: %w", err)
	}

	reports, err := spill.Collect()
	if err != nil {
		return fmt.Errorf("collect reports: %w", err)
	}

	sortReports(reports)

	reportsDir := args.Reports
	if args.TotalShardCount > 1 {
		reportsDir = adapter.ShardDir(args.Reports, int(args.ShardIndex))
	}

	if err := w.SaveReports(ctx, reportsDir, reports); err != nil {
		return fmt.Errorf("save reports: %w", err)
	}

	w.DisplaySummary(ctx, reports)

	summary := m.Summarize(reports)
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrProjectsFailed, summary.Failed, summary.Total())
	}

	return nil
}

// runProject never returns an error: every failure ends up in the report.
func (w *workflow) runProject(ctx context.Context, root m.Path, args TestArgs) m.RunReport {
	runID := uuid.NewString()
	failed := func(project string, err error) m.RunReport {
		slog.Error("Fixture project failed before running", "project", project, "error", err)

		return m.RunReport{
			RunID:   runID,
			Project: project,
			Root:    root,
			Status:  m.Failed,
			State:   m.StateFailed,
			Weak:    args.Weak,
			Error:   err.Error(),
		}
	}

	set, err := w.Load(ctx, root)
	if err != nil {
		return failed(string(root), err)
	}

	w.DisplayStartingRun(ctx, set.Name)

	if verdict := w.validator.Validate(set.Fixtures, set.RawNames); !verdict.Supported {
		slog.Info("Skipping unsupported fixture project", "project", set.Name, "reason", verdict.Reason)

		return m.RunReport{
			RunID:   runID,
			Project: set.Name,
			Root:    root,
			Status:  m.Skipped,
			State:   m.StateUnsupported,
			Reason:  verdict.Reason,
			Weak:    args.Weak,
		}
	}

	workspace, release, err := w.prepareWorkspace(ctx, set, runID, args)
	if err != nil {
		return failed(set.Name, err)
	}
	defer release()

	sourceRoot, err := w.Seed(ctx, set, SeedArgs{WorkDir: workspace, SourceDir: args.SourceDir, Template: args.Template})
	if err != nil {
		return failed(set.Name, err)
	}

	report, err := w.Run(ctx, RunSpec{
		Set:        set,
		WorkDir:    workspace,
		SourceRoot: sourceRoot,
		Weak:       args.Weak,
		Options:    args.Build,
	})
	report.RunID = runID

	if err != nil {
		slog.Debug("Fixture project run failed", "project", set.Name, "workspace", workspace, "error", err)
	}

	return report
}

// prepareWorkspace returns an empty working copy and the function that
// releases it.
func (w *workflow) prepareWorkspace(ctx context.Context, set m.FixtureSet, runID string, args TestArgs) (m.Path, func(), error) {
	if args.WorkDir == "" {
		dir, err := w.CreateTempDir(ctx, "stagecheck-"+runID[:8]+"-*")
		if err != nil {
			return "", nil, fmt.Errorf("create working copy: %w", err)
		}

		return dir, w.cleanup(ctx, dir, args.Keep), nil
	}

	if err := w.MkdirAll(ctx, args.WorkDir); err != nil {
		return "", nil, fmt.Errorf("create workdir: %w", err)
	}

	dir := w.JoinPath(ctx, string(args.WorkDir), WorkspaceName(set.Name))
	if err := w.locker.Lock(dir); err != nil {
		return "", nil, err
	}

	if err := w.RemoveAll(ctx, dir); err != nil {
		w.locker.Unlock(dir)
		return "", nil, fmt.Errorf("reset working copy: %w", err)
	}

	if err := w.MkdirAll(ctx, dir); err != nil {
		w.locker.Unlock(dir)
		return "", nil, fmt.Errorf("create working copy: %w", err)
	}

	clean := w.cleanup(ctx, dir, args.Keep)

	return dir, func() {
		clean()
		w.locker.Unlock(dir)
	}, nil
}

func (w *workflow) cleanup(ctx context.Context, dir m.Path, keep bool) func() {
	return func() {
		if keep {
			slog.Info("Keeping working copy", "path", dir)
			return
		}

		if err := w.RemoveAll(context.WithoutCancel(ctx), dir); err != nil {
			slog.Error("Failed to remove working copy", "path", dir, "error", err)
		}
	}
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	projects, err := w.Discover(ctx, args.Paths, args.Exclude)
	if err != nil {
		return fmt.Errorf("discover fixture projects: %w", err)
	}

	summaries := make([]m.ProjectSummary, 0, len(projects))

	for _, root := range projects {
		summary, err := w.describeProject(ctx, root)
		if err != nil {
			return err
		}

		summaries = append(summaries, summary)
	}

	return w.DisplayProjects(ctx, summaries)
}

func (w *workflow) describeProject(ctx context.Context, root m.Path) (m.ProjectSummary, error) {
	set, err := w.Load(ctx, root)
	if err != nil {
		return m.ProjectSummary{}, fmt.Errorf("load %s: %w", root, err)
	}

	verdict := w.validator.Validate(set.Fixtures, set.RawNames)
	summary := m.ProjectSummary{
		Project:   set.Name,
		Root:      root,
		Supported: verdict.Supported,
		Reason:    verdict.Reason,
		Steps:     -1,
	}

	for _, fixture := range set.Fixtures {
		if fixture.Directive != m.DirectiveNone {
			summary.Directives++
			continue
		}

		if _, ok := m.KindForPath(fixture.LogicalPath); ok {
			summary.Sources++
		}
	}

	if set.BuildLog == "" {
		return summary, nil
	}

	content, err := w.ReadFile(ctx, set.BuildLog)
	if err != nil {
		return m.ProjectSummary{}, fmt.Errorf("read build log: %w", err)
	}

	if buildLog, err := ParseBuildLog(string(content)); err == nil {
		summary.Steps = len(buildLog)
	} else {
		slog.Warn("Unusable build log", "project", set.Name, "log", set.BuildLog, "error", err)
	}

	return summary, nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	reports, err := w.LoadReports(ctx, args.Reports)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	for _, report := range reports {
		w.DisplayRunReport(ctx, report)
	}

	w.DisplaySummary(ctx, reports)

	return nil
}

func (w *workflow) Merge(ctx context.Context, args MergeArgs) error {
	shards, err := w.ShardDirs(ctx, args.Reports)
	if err != nil {
		return fmt.Errorf("list shards: %w", err)
	}

	if len(shards) == 0 {
		return fmt.Errorf("%w in %s", adapter.ErrNoReports, args.Reports)
	}

	byProject := make(map[string]m.RunReport)

	for _, shard := range shards {
		reports, err := w.LoadReports(ctx, shard)
		if err != nil {
			return fmt.Errorf("load shard %s: %w", shard, err)
		}

		for _, report := range reports {
			byProject[report.Project] = report
		}
	}

	merged := make([]m.RunReport, 0, len(byProject))
	for _, report := range byProject {
		merged = append(merged, report)
	}

	sortReports(merged)

	if err := w.SaveReports(ctx, args.Reports, merged); err != nil {
		return fmt.Errorf("save merged reports: %w", err)
	}

	for _, shard := range shards {
		if err := w.RemoveAll(ctx, shard); err != nil {
			return fmt.Errorf("remove shard %s: %w", shard, err)
		}
	}

	slog.Info("Merged shard reports", "shards", len(shards), "reports", len(merged))

	w.DisplaySummary(ctx, merged)

	return nil
}

// ShardProjects keeps the projects whose position modulo total is index.
func ShardProjects(projects []m.Path, index, total uint) []m.Path {
	if total <= 1 {
		return projects
	}

	var shard []m.Path

	for i, project := range projects {
		if uint(i)%total == index {
			shard = append(shard, project)
		}
	}

	return shard
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// WorkspaceName turns a project name into a single directory name. The
// suffix is derived from the unsanitized name, so distinct projects never
// share a directory.
func WorkspaceName(project string) string {
	name := strings.Trim(unsafeNameChars.ReplaceAllString(project, "_"), "_.")
	if name == "" {
		name = "project"
	}

	return name + "-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(project)).String()[:8]
}

func sortReports(reports []m.RunReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Project < reports[j].Project
	})
}
