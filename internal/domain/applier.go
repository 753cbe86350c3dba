package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"stagecheck.dev/pkg/stagecheck/internal/adapter"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// minTimestampStep is the coarsest mtime resolution the applier accounts for.
const minTimestampStep = time.Second

// Applier applies staged fixture directives to a working copy.
type Applier interface {
	// Apply runs every directive that belongs to stage, or to all stages,
	// against the files under workingRoot.
	Apply(ctx context.Context, fixtures []m.Fixture, workingRoot m.Path, stage int) ([]m.AppliedMutation, error)
}

type applier struct {
	adapter.SourceFSAdapter
	now func() time.Time
}

// NewApplier constructs an Applier that uses the wall clock.
func NewApplier(fsAdapter adapter.SourceFSAdapter) Applier {
	return newApplierWithClock(fsAdapter, time.Now)
}

func newApplierWithClock(fsAdapter adapter.SourceFSAdapter, now func() time.Time) *applier {
	return &applier{SourceFSAdapter: fsAdapter, now: now}
}

func (a *applier) Apply(ctx context.Context, fixtures []m.Fixture, workingRoot m.Path, stage int) ([]m.AppliedMutation, error) {
	ordered := make([]m.Fixture, 0, len(fixtures))

	for _, fixture := range fixtures {
		if fixture.AppliesAt(stage) {
			ordered = append(ordered, fixture)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].FullPath != ordered[j].FullPath {
			return ordered[i].FullPath < ordered[j].FullPath
		}

		return ordered[i].LogicalPath < ordered[j].LogicalPath
	})

	applied := make([]m.AppliedMutation, 0, len(ordered))

	for _, fixture := range ordered {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		target := a.JoinPath(ctx, string(workingRoot), filepath.FromSlash(fixture.LogicalPath))

		if err := a.applyOne(ctx, fixture, target); err != nil {
			return applied, err
		}

		slog.Debug("Applied modification", "stage", stage, "directive", fixture.Directive, "target", target, "fixture", fixture.FullPath)

		applied = append(applied, m.AppliedMutation{
			Directive: fixture.Directive,
			Target:    target,
			Fixture:   fixture.FullPath,
		})
	}

	return applied, nil
}

func (a *applier) applyOne(ctx context.Context, fixture m.Fixture, target m.Path) error {
	switch fixture.Directive {
	case m.DirectiveTouch:
		info, err := a.existingTarget(ctx, fixture, target)
		if err != nil {
			return err
		}

		return a.bumpTimestamp(ctx, target, info.ModTime())
	case m.DirectiveNew:
		var previous time.Time
		if info, err := a.FileInfo(ctx, target); err == nil {
			previous = info.ModTime()
		}

		if err := a.CopyFile(ctx, fixture.FullPath, target); err != nil {
			slog.Error("Failed to copy fixture", "fixture", fixture.FullPath, "target", target, "error", err)
			return fmt.Errorf("new %s: %w", target, err)
		}

		return a.bumpTimestamp(ctx, target, previous)
	case m.DirectiveDelete:
		if _, err := a.existingTarget(ctx, fixture, target); err != nil {
			return err
		}

		if err := a.Remove(ctx, target); err != nil {
			slog.Error("Failed to delete target", "target", target, "error", err)
			return fmt.Errorf("delete %s: %w", target, err)
		}

		return nil
	case m.DirectiveNone:
		return nil
	default:
		return fmt.Errorf("unknown directive %d for %s", fixture.Directive, fixture.FullPath)
	}
}

func (a *applier) existingTarget(ctx context.Context, fixture m.Fixture, target m.Path) (os.FileInfo, error) {
	info, err := a.FileInfo(ctx, target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingTargetError{Directive: fixture.Directive, Fixture: fixture.FullPath, Target: target}
		}

		return nil, fmt.Errorf("stat %s: %w", target, err)
	}

	return info, nil
}

// bumpTimestamp sets the mtime of target to now. When now falls into the same
// or an earlier timestamp bucket than previous, the mtime is moved into the
// next bucket so the change is visible on coarse-resolution filesystems.
func (a *applier) bumpTimestamp(ctx context.Context, target m.Path, previous time.Time) error {
	mtime := a.now()
	if !previous.IsZero() {
		floor := previous.Truncate(minTimestampStep)
		if !mtime.Truncate(minTimestampStep).After(floor) {
			mtime = floor.Add(minTimestampStep)
		}
	}

	if err := a.Chtimes(ctx, target, mtime); err != nil {
		slog.Error("Failed to update timestamp", "target", target, "error", err)
		return fmt.Errorf("set timestamp on %s: %w", target, err)
	}

	return nil
}
