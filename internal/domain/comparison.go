package domain

import m "stagecheck.dev/pkg/stagecheck/internal/model"

// compareOutcome checks a build result against the expected step. A step
// expected to fail only asserts the failure; its file lists are ignored.
func compareOutcome(stage int, expected m.BuildStep, actual m.BuildResult, weak bool) error {
	mismatch := &OutcomeMismatchError{Stage: stage, Weak: weak, Expected: expected, Actual: actual}

	if expected.CompileSucceeded != actual.Succeeded {
		return mismatch
	}

	if !expected.CompileSucceeded {
		return nil
	}

	for _, kind := range m.SourceKinds {
		if !filesMatch(expected.CompiledFiles.Of(kind), actual.CompiledFiles.Of(kind), weak) {
			return mismatch
		}
	}

	return nil
}

// filesMatch is set equality in exact mode and expected ⊆ actual in weak mode.
func filesMatch(expected, actual m.FileSet, weak bool) bool {
	if weak {
		return expected.SubsetOf(actual)
	}

	return expected.Equal(actual)
}
