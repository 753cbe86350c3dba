package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

const twoStepLog = `Cleaning output files: this preamble is ignored
================ Step #1 =================
Cleaning output files:
out/production/module/A.class
End of files
Compiling files:
src/A.kt
src/B.java
src/res.txt
End of files
Exit code: OK
------------------------------------------
================ Step #2 =================
Compiling files:
src/A.kt
End of files
Exit code: ABORT
------------------------------------------
COMPILATION FAILED
Unresolved reference: foo
`

func TestParseBuildLog_Steps(t *testing.T) {
	buildLog, err := ParseBuildLog(twoStepLog)
	require.NoError(t, err)
	require.Len(t, buildLog, 2)

	first := buildLog[0]
	assert.True(t, first.CompileSucceeded)
	assert.Equal(t, []string{"src/A.kt"}, first.CompiledFiles.Of(m.KindKotlin).Sorted())
	assert.Equal(t, []string{"src/B.java"}, first.CompiledFiles.Of(m.KindJava).Sorted())
	assert.Empty(t, first.CompileErrors)

	second := buildLog[1]
	assert.False(t, second.CompileSucceeded)
	assert.Equal(t, []string{"src/A.kt"}, second.CompiledFiles.Of(m.KindKotlin).Sorted())
	assert.Empty(t, second.CompiledFiles.Of(m.KindJava))
	assert.Equal(t, []string{"Unresolved reference: foo"}, second.CompileErrors)
}

func TestParseBuildLog_ExitCodeError(t *testing.T) {
	buildLog, err := ParseBuildLog("==== Step #1 ====\nExit code: ERROR\n")
	require.NoError(t, err)
	require.Len(t, buildLog, 1)
	assert.False(t, buildLog[0].CompileSucceeded)
}

func TestParseBuildLog_EmptyHeadedStep(t *testing.T) {
	buildLog, err := ParseBuildLog("==== Step #1 ====\n==== Step #2 ====\nCompiling files:\nA.kt\nEnd of files\n")
	require.NoError(t, err)
	require.Len(t, buildLog, 2)
	assert.True(t, buildLog[0].CompileSucceeded)
	assert.Empty(t, buildLog[0].CompiledFiles.Of(m.KindKotlin))
	assert.True(t, buildLog[1].CompiledFiles.Of(m.KindKotlin).Contains("A.kt"))
}

func TestParseBuildLog_ImplicitStep(t *testing.T) {
	buildLog, err := ParseBuildLog("Compiling files:\nsrc/A.kt\nEnd of files\nExit code: OK\n")
	require.NoError(t, err)
	require.Len(t, buildLog, 1)
	assert.True(t, buildLog[0].CompiledFiles.Of(m.KindKotlin).Contains("src/A.kt"))
}

func TestParseBuildLog_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"diagnostics only", "Building module...\nDone\n"},
		{"unterminated block at end", "==== Step #1 ====\nCompiling files:\nA.kt\n"},
		{"unterminated block before next step", "==== Step #1 ====\nCompiling files:\nA.kt\n==== Step #2 ====\nExit code: OK\n"},
		{"unterminated block in preamble", "Compiling files:\nA.kt\n==== Step #1 ====\nExit code: OK\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBuildLog(tt.text)
			require.ErrorIs(t, err, ErrMalformedLog)
		})
	}
}
