package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

var (
	// ErrMalformedLog is returned when a build log holds no usable step record.
	ErrMalformedLog = errors.New("malformed build log")
	// ErrMissingBuildLog is returned when a supported project has no *build.log file.
	ErrMissingBuildLog = errors.New("*build.log file not found")
)

// MissingTargetError reports a touch or delete directive whose target does not
// exist in the working copy.
type MissingTargetError struct {
	Directive m.Directive
	Fixture   m.Path
	Target    m.Path
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("%s %s: target %s does not exist in the working copy", e.Directive, e.Fixture, e.Target)
}

// OutcomeMismatchError reports a build whose outcome disagrees with the
// expected step.
type OutcomeMismatchError struct {
	Stage    int
	Weak     bool
	Expected m.BuildStep
	Actual   m.BuildResult
}

func (e *OutcomeMismatchError) Error() string {
	var buf strings.Builder

	if e.Expected.CompileSucceeded != e.Actual.Succeeded {
		fmt.Fprintf(&buf, "%s: expected build to %s, but it %s",
			stageLabel(e.Stage), outcomeVerb(e.Expected.CompileSucceeded), outcomePast(e.Actual.Succeeded))

		return buf.String()
	}

	mode := "exact"
	if e.Weak {
		mode = "weak"
	}

	fmt.Fprintf(&buf, "%s: compiled files differ (%s comparison)", stageLabel(e.Stage), mode)

	for _, kind := range m.SourceKinds {
		expected := e.Expected.CompiledFiles.Of(kind)
		actual := e.Actual.CompiledFiles.Of(kind)

		if filesMatch(expected, actual, e.Weak) {
			continue
		}

		fmt.Fprintf(&buf, "\n%s", fileSetDiff(kind, expected, actual))
	}

	return buf.String()
}

func stageLabel(stage int) string {
	if stage == 0 {
		return "initial build"
	}

	return fmt.Sprintf("stage %d", stage)
}

func outcomeVerb(succeeded bool) string {
	if succeeded {
		return "succeed"
	}

	return "fail"
}

func outcomePast(succeeded bool) string {
	if succeeded {
		return "succeeded"
	}

	return "failed"
}

func fileSetDiff(kind m.SourceKind, expected, actual m.FileSet) string {
	diff := difflib.UnifiedDiff{
		A:        withNewlines(expected.Sorted()),
		B:        withNewlines(actual.Sorted()),
		FromFile: "expected " + string(kind),
		ToFile:   "actual " + string(kind),
		Context:  len(expected) + len(actual),
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("expected %s: %v\nactual %s: %v", kind, expected.Sorted(), kind, actual.Sorted())
	}

	return text
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line + "\n"
	}

	return out
}

// StageError wraps a fatal run error with the stage it happened in and the
// build output captured during the whole run.
type StageError struct {
	Project string
	// Phase is the orchestrator state the failure happened in.
	Phase      m.RunState
	Stage      int
	Err        error
	Transcript string
}

func (e *StageError) Error() string {
	where := string(e.Phase)
	if e.Stage > 0 {
		where = fmt.Sprintf("stage %d", e.Stage)
	}

	return fmt.Sprintf("%s: %s: %v", e.Project, where, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
