// Package controller provides output adapters for displaying harness results.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// UI defines how the workflow reports progress and results.
// Implementations must be safe for concurrent use; runs report in parallel.
type UI interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
	DisplayProjects(ctx context.Context, projects []m.ProjectSummary) error
	DisplayConcurrencyInfo(ctx context.Context, threads, shardIndex, shardCount, projects int)
	DisplayStartingRun(ctx context.Context, project string)
	DisplayRunReport(ctx context.Context, report m.RunReport)
	DisplaySummary(ctx context.Context, reports []m.RunReport)
}

// NewUI returns the UI used by the CLI. Colors are only enabled on terminals.
func NewUI(cmd *cobra.Command, tty bool) UI {
	return NewSimpleUI(cmd, tty)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
