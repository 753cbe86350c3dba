package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

func compiled(files ...string) m.CompiledFiles {
	out := m.NewCompiledFiles()
	for _, f := range files {
		out.Add(f)
	}

	return out
}

func TestCompareOutcome(t *testing.T) {
	expected := m.BuildStep{CompileSucceeded: true, CompiledFiles: compiled("src/A.kt")}

	t.Run("exact match", func(t *testing.T) {
		err := compareOutcome(1, expected, m.BuildResult{Succeeded: true, CompiledFiles: compiled("src/A.kt")}, false)
		require.NoError(t, err)
	})

	t.Run("extra file fails exact and passes weak", func(t *testing.T) {
		actual := m.BuildResult{Succeeded: true, CompiledFiles: compiled("src/A.kt", "src/B.kt")}

		err := compareOutcome(1, expected, actual, false)

		var mismatch *OutcomeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Contains(t, err.Error(), "stage 1: compiled files differ (exact comparison)")
		assert.Contains(t, err.Error(), "+src/B.kt")

		require.NoError(t, compareOutcome(1, expected, actual, true))
	})

	t.Run("missing file fails weak", func(t *testing.T) {
		err := compareOutcome(2, expected, m.BuildResult{Succeeded: true, CompiledFiles: compiled("src/B.kt")}, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "(weak comparison)")
		assert.Contains(t, err.Error(), "-src/A.kt")
	})

	t.Run("expected failure ignores file lists", func(t *testing.T) {
		step := m.BuildStep{CompileSucceeded: false, CompiledFiles: compiled("src/A.kt")}

		require.NoError(t, compareOutcome(3, step, m.BuildResult{Succeeded: false, CompiledFiles: compiled("src/Z.kt")}, false))
	})

	t.Run("outcome mismatch", func(t *testing.T) {
		err := compareOutcome(0, expected, m.BuildResult{Succeeded: false}, false)
		require.Error(t, err)
		assert.Equal(t, "initial build: expected build to succeed, but it failed", err.Error())
	})
}

func TestStageError(t *testing.T) {
	cause := &MissingTargetError{Directive: m.DirectiveDelete, Fixture: "fx/B.delete.kt", Target: "work/src/B.kt"}

	err := fmt.Errorf("apply: %w", &StageError{Project: "cases/b", Phase: m.StateCycling, Stage: 2, Err: cause})
	assert.Equal(t, "apply: cases/b: stage 2: delete fx/B.delete.kt: target work/src/B.kt does not exist in the working copy", err.Error())

	var missing *MissingTargetError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, m.Path("work/src/B.kt"), missing.Target)

	initial := &StageError{Project: "cases/c", Phase: m.StateInitialBuild, Err: ErrMalformedLog}
	assert.Equal(t, "cases/c: initial-build: malformed build log", initial.Error())
	assert.ErrorIs(t, initial, ErrMalformedLog)
}
