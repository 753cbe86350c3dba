package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// DefaultBuildTimeout bounds a single build invocation.
const DefaultBuildTimeout = 10 * time.Minute

// filesGroup is the capture name a compiled-files pattern must define.
const filesGroup = "files"

var fileListSeparator = regexp.MustCompile(`[,\s]+`)

// BuildRunnerAdapter abstracts the build tool the harness drives.
type BuildRunnerAdapter interface {
	// RunBuild runs one build in workDir. A failing build is reported through
	// BuildResult.Succeeded; the error is reserved for failures to launch it.
	RunBuild(ctx context.Context, workDir m.Path, options m.BuildOptions) (m.BuildResult, error)
}

// LocalBuildRunnerAdapter runs the build command with os/exec and scrapes the
// compiled file list from its output.
type LocalBuildRunnerAdapter struct {
	patterns map[m.SourceKind]*regexp.Regexp
}

// NewLocalBuildRunnerAdapter constructs a runner with per-kind output patterns.
// Each pattern must contain a named group "files" holding a comma or
// whitespace separated list of compiled paths.
func NewLocalBuildRunnerAdapter(patterns map[m.SourceKind]string) (*LocalBuildRunnerAdapter, error) {
	compiled := make(map[m.SourceKind]*regexp.Regexp, len(patterns))

	for kind, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s output pattern: %w", kind, err)
		}

		if re.SubexpIndex(filesGroup) < 0 {
			return nil, fmt.Errorf("%s output pattern %q has no (?P<%s>...) group", kind, pattern, filesGroup)
		}

		compiled[kind] = re
	}

	return &LocalBuildRunnerAdapter{patterns: compiled}, nil
}

// RunBuild executes options.Command in workDir and collects its output.
func (a *LocalBuildRunnerAdapter) RunBuild(ctx context.Context, workDir m.Path, options m.BuildOptions) (m.BuildResult, error) {
	if len(options.Command) == 0 {
		return m.BuildResult{}, errors.New("build command is empty")
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 - the build command comes from the harness configuration
	cmd := exec.CommandContext(ctx, options.Command[0], options.Command[1:]...)
	cmd.Dir = string(workDir)
	cmd.Env = append(os.Environ(), options.Env...)

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	result := m.BuildResult{
		Succeeded: err == nil,
		RawOutput: output.String(),
		Duration:  time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("run %s: %w", options.Command[0], err)
		}

		if ctx.Err() != nil {
			return result, fmt.Errorf("build timed out after %s: %w", timeout, ctx.Err())
		}
	}

	result.CompiledFiles = a.ParseCompiledFiles(workDir, result.RawOutput)

	return result, nil
}

// ParseCompiledFiles extracts compiled paths from build output. Absolute paths
// are made relative to workDir; all paths are slash separated.
func (a *LocalBuildRunnerAdapter) ParseCompiledFiles(workDir m.Path, output string) m.CompiledFiles {
	files := m.NewCompiledFiles()

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")

		for kind, re := range a.patterns {
			match := re.FindStringSubmatch(line)
			if match == nil {
				continue
			}

			for _, entry := range fileListSeparator.Split(match[re.SubexpIndex(filesGroup)], -1) {
				entry = strings.Trim(entry, `"'`)
				if entry == "" {
					continue
				}

				if k, ok := m.KindForPath(entry); !ok || k != kind {
					continue
				}

				files[kind].Add(relativeTo(workDir, entry))
			}
		}
	}

	return files
}

func relativeTo(workDir m.Path, path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}

	base := string(workDir)
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}

	for _, root := range []string{string(workDir), base} {
		rel, err := filepath.Rel(root, path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}

	return filepath.ToSlash(path)
}
