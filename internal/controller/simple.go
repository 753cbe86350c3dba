package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

var (
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// SimpleUI implements UI using the cobra command's output stream.
type SimpleUI struct {
	cmd   *cobra.Command
	color bool
	mu    sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, color bool) *SimpleUI {
	return &SimpleUI{cmd: cmd, color: color}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// DisplayProjects prints discovered projects with their verdicts.
func (s *SimpleUI) DisplayProjects(ctx context.Context, projects []m.ProjectSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderProjectsTable(projects))

	return nil
}

func renderProjectsTable(projects []m.ProjectSummary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Project", "Stages", "Sources", "Directives", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT,
	})

	supported := 0

	for _, project := range projects {
		status := "supported"
		if !project.Supported {
			status = "skip: " + project.Reason
		} else {
			supported++
		}

		stages := "-"
		if project.Steps >= 0 {
			stages = fmt.Sprintf("%d", project.Steps)
		}

		table.Append([]string{
			string(project.Root),
			stages,
			fmt.Sprintf("%d", project.Sources),
			fmt.Sprintf("%d", project.Directives),
			status,
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Projects %d", len(projects)), "", "", "",
		fmt.Sprintf("%d supported", supported),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayConcurrencyInfo shows concurrency and sharding settings.
func (s *SimpleUI) DisplayConcurrencyInfo(ctx context.Context, threads, shardIndex, shardCount, projects int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Running %d fixture project(s) with %d worker(s) (Shard %d/%d)\n", projects, threads, shardIndex, shardCount)
}

// DisplayStartingRun announces a project run.
func (s *SimpleUI) DisplayStartingRun(ctx context.Context, project string) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s %s\n", s.style(faintStyle, "Starting"), project)
}

// DisplayRunReport prints the outcome of one project and, for failures, the
// build output of the whole run.
func (s *SimpleUI) DisplayRunReport(ctx context.Context, report m.RunReport) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s", s.renderRunReport(report))
}

func (s *SimpleUI) renderRunReport(report m.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s", s.statusLabel(report.Status), report.Project)

	switch report.Status {
	case m.Skipped:
		fmt.Fprintf(&b, " (%s)\n", report.Reason)
		return b.String()
	case m.Passed:
		fmt.Fprintf(&b, " (%d stage(s))\n", len(report.Stages))
		return b.String()
	case m.Failed:
		b.WriteString("\n")
	}

	for _, stage := range report.Stages {
		fmt.Fprintf(&b, "  stage %d: %s\n", stage.Stage, stageOutcome(stage))

		for _, applied := range stage.Applied {
			fmt.Fprintf(&b, "    %s\n", applied)
		}
	}

	if report.Error != "" {
		fmt.Fprintf(&b, "  error: %s\n", indentContinuation(report.Error, "    "))
	}

	if report.Output != "" {
		b.WriteString("  build output:\n")
		b.WriteString(indent(report.Output, "    "))
	}

	return b.String()
}

func stageOutcome(stage m.StageReport) string {
	expected := "success"
	if !stage.ExpectSucceeded {
		expected = "failure"
	}

	actual := "failed"
	if stage.Succeeded {
		actual = "succeeded"
	}

	verdict := "mismatch"
	if stage.Matched {
		verdict = "ok"
	}

	return fmt.Sprintf("expected %s, build %s, %s", expected, actual, verdict)
}

// DisplaySummary prints a table of all runs and the totals.
func (s *SimpleUI) DisplaySummary(ctx context.Context, reports []m.RunReport) {
	if ctx.Err() != nil {
		return
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Project", "Stages", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	summary := m.Summarize(reports)

	for _, report := range reports {
		table.Append([]string{report.Project, fmt.Sprintf("%d", len(report.Stages)), report.Status.String()})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Projects %d", summary.Total()), "",
		fmt.Sprintf("%d passed, %d failed, %d skipped", summary.Passed, summary.Failed, summary.Skipped),
	})

	table.Render()

	s.printf("\n%s", tableBuffer.String())
}

func (s *SimpleUI) statusLabel(status m.RunStatus) string {
	label := strings.ToUpper(status.String())

	switch status {
	case m.Passed:
		return s.style(passedStyle, label)
	case m.Failed:
		return s.style(failedStyle, label)
	case m.Skipped:
		return s.style(skippedStyle, label)
	default:
		return label
	}
}

func (s *SimpleUI) style(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}

	return style.Render(text)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")

	var b strings.Builder

	for _, line := range lines {
		if line == "" {
			continue
		}

		b.WriteString(prefix)
		b.WriteString(line)
	}

	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}

	return b.String()
}

func indentContinuation(text, prefix string) string {
	return strings.ReplaceAll(strings.TrimRight(text, "\n"), "\n", "\n"+prefix)
}
