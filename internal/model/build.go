package model

import "time"

// BuildStep is the expected outcome of one build invocation.
type BuildStep struct {
	CompileSucceeded bool
	CompiledFiles    CompiledFiles
	CompileErrors    []string
}

// BuildLog is the ordered sequence of expected build steps.
type BuildLog []BuildStep

// BuildOptions configures a single invocation of the build collaborator.
type BuildOptions struct {
	// Command is the program and arguments to execute.
	Command []string
	Env     []string
	Timeout time.Duration
}

// BuildResult is what the build collaborator reports back.
type BuildResult struct {
	Succeeded     bool
	CompiledFiles CompiledFiles
	RawOutput     string
	Duration      time.Duration
}

// AppliedMutation records one directive applied to the working copy.
type AppliedMutation struct {
	Directive Directive
	Target    Path
	Fixture   Path
}
