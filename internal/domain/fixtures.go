package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"stagecheck.dev/pkg/stagecheck/internal/adapter"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

const (
	buildLogSuffix   = "build.log"
	recursiveSuffix  = "/..."
	projectLogGlob   = "*" + buildLogSuffix
	recursiveLogGlob = "**/" + projectLogGlob
)

// FixtureLoader discovers fixture projects and reads their fixture sets.
type FixtureLoader interface {
	// Discover returns fixture project roots for the given path patterns.
	// A trailing "/..." searches recursively.
	Discover(ctx context.Context, paths []m.Path, exclude []string) ([]m.Path, error)
	// Load classifies every file under root and selects the build log.
	Load(ctx context.Context, root m.Path) (m.FixtureSet, error)
}

type fixtureLoader struct {
	adapter.SourceFSAdapter
}

// NewFixtureLoader constructs a FixtureLoader backed by fsAdapter.
func NewFixtureLoader(fsAdapter adapter.SourceFSAdapter) FixtureLoader {
	return &fixtureLoader{SourceFSAdapter: fsAdapter}
}

func (l *fixtureLoader) Discover(ctx context.Context, paths []m.Path, exclude []string) ([]m.Path, error) {
	if len(paths) == 0 {
		paths = []m.Path{m.Path("." + recursiveSuffix)}
	}

	excludeRegexps, err := compileExcludes(exclude)
	if err != nil {
		return nil, err
	}

	seen := make(map[m.Path]struct{})

	var projects []m.Path

	for _, p := range paths {
		root, pattern := splitPattern(p)

		logs, err := l.Glob(ctx, root, pattern)
		if err != nil {
			slog.Error("Failed to search for build logs", "root", root, "error", err)
			return nil, fmt.Errorf("discover projects in %s: %w", p, err)
		}

		if len(logs) == 0 {
			slog.Warn("No fixture projects found", "path", p)
		}

		for _, logPath := range logs {
			dir := m.Path(filepath.Dir(string(logPath)))
			if _, ok := seen[dir]; ok {
				continue
			}

			seen[dir] = struct{}{}

			if isExcluded(string(dir), excludeRegexps) {
				slog.Debug("Excluding fixture project", "project", dir)
				continue
			}

			projects = append(projects, dir)
		}
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i] < projects[j] })

	return projects, nil
}

func splitPattern(p m.Path) (m.Path, string) {
	s := filepath.ToSlash(string(p))
	if s == "..." {
		return ".", recursiveLogGlob
	}

	if strings.HasSuffix(s, recursiveSuffix) {
		root := strings.TrimSuffix(s, recursiveSuffix)
		if root == "" {
			root = "/"
		}

		return m.Path(filepath.FromSlash(root)), recursiveLogGlob
	}

	return p, projectLogGlob
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		out = append(out, re)
	}

	return out, nil
}

func isExcluded(path string, patterns []*regexp.Regexp) bool {
	slashed := filepath.ToSlash(path)
	for _, re := range patterns {
		if re.MatchString(slashed) {
			return true
		}
	}

	return false
}

func (l *fixtureLoader) Load(ctx context.Context, root m.Path) (m.FixtureSet, error) {
	set := m.FixtureSet{
		Name: filepath.ToSlash(filepath.Clean(string(root))),
		Root: root,
	}

	err := l.Walk(ctx, root, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, err := l.RelPath(ctx, root, m.Path(path))
		if err != nil {
			return err
		}

		fixture := ClassifyRelative(filepath.ToSlash(string(rel)))
		fixture.FullPath = m.Path(path)

		set.Fixtures = append(set.Fixtures, fixture)
		set.RawNames = append(set.RawNames, info.Name())

		return nil
	})
	if err != nil {
		slog.Error("Failed to read fixture project", "root", root, "error", err)
		return m.FixtureSet{}, fmt.Errorf("read fixtures in %s: %w", root, err)
	}

	buildLog, err := l.selectBuildLog(ctx, root)
	if err != nil {
		return m.FixtureSet{}, err
	}

	set.BuildLog = buildLog

	return set, nil
}

// selectBuildLog picks the smallest *build.log directly inside root.
func (l *fixtureLoader) selectBuildLog(ctx context.Context, root m.Path) (m.Path, error) {
	candidates, err := l.Glob(ctx, root, projectLogGlob)
	if err != nil {
		return "", fmt.Errorf("find build log in %s: %w", root, err)
	}

	type sized struct {
		path m.Path
		size int64
	}

	logs := make([]sized, 0, len(candidates))

	for _, candidate := range candidates {
		info, err := l.FileInfo(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("stat build log %s: %w", candidate, err)
		}

		logs = append(logs, sized{path: candidate, size: info.Size()})
	}

	if len(logs) == 0 {
		return "", nil
	}

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].size != logs[j].size {
			return logs[i].size < logs[j].size
		}

		return logs[i].path < logs[j].path
	})

	return logs[0].path, nil
}
