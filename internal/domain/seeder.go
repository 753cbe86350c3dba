package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"stagecheck.dev/pkg/stagecheck/internal/adapter"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// SeedArgs describes how a working copy is prepared from a fixture set.
type SeedArgs struct {
	WorkDir m.Path
	// SourceDir is the directory under WorkDir that receives the sources.
	SourceDir string
	// Template is an optional scaffold copied into WorkDir before the sources.
	Template m.Path
}

// Seeder prepares a working copy before the initial build.
type Seeder interface {
	// Seed copies the plain source fixtures and returns the source root the
	// applier works against.
	Seed(ctx context.Context, set m.FixtureSet, args SeedArgs) (m.Path, error)
}

type seeder struct {
	adapter.SourceFSAdapter
	policy FixturePolicy
}

// NewSeeder constructs a Seeder copying sources recognized by policy.
func NewSeeder(fsAdapter adapter.SourceFSAdapter, policy FixturePolicy) Seeder {
	return &seeder{SourceFSAdapter: fsAdapter, policy: policy}
}

func (s *seeder) Seed(ctx context.Context, set m.FixtureSet, args SeedArgs) (m.Path, error) {
	if args.Template != "" {
		if err := s.CopyDir(ctx, args.Template, args.WorkDir); err != nil {
			slog.Error("Failed to copy project template", "template", args.Template, "workDir", args.WorkDir, "error", err)
			return "", fmt.Errorf("copy template %s: %w", args.Template, err)
		}
	}

	sourceRoot := s.JoinPath(ctx, string(args.WorkDir), args.SourceDir)
	if err := s.MkdirAll(ctx, sourceRoot); err != nil {
		return "", fmt.Errorf("create source root: %w", err)
	}

	copied := 0

	for _, fixture := range set.Fixtures {
		if fixture.Directive != m.DirectiveNone || !s.policy.IsSourceExtension(fixture.SourceExtension) {
			continue
		}

		target := s.JoinPath(ctx, string(sourceRoot), filepath.FromSlash(fixture.LogicalPath))
		if err := s.CopyFile(ctx, fixture.FullPath, target); err != nil {
			slog.Error("Failed to seed source", "fixture", fixture.FullPath, "target", target, "error", err)
			return "", fmt.Errorf("seed %s: %w", fixture.LogicalPath, err)
		}

		copied++
	}

	slog.Debug("Seeded working copy", "project", set.Name, "sourceRoot", sourceRoot, "files", copied)

	return sourceRoot, nil
}
