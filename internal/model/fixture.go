package model

// Directive is the mutation a fixture file encodes.
type Directive int

const (
	// DirectiveNone marks a plain source file seeded into the working copy during setup.
	DirectiveNone Directive = iota
	// DirectiveTouch bumps the modification time of an existing file.
	DirectiveTouch
	// DirectiveNew writes the fixture content over (or as) the target file.
	DirectiveNew
	// DirectiveDelete removes an existing file.
	DirectiveDelete
)

func (d Directive) String() string {
	switch d {
	case DirectiveNone:
		return "none"
	case DirectiveTouch:
		return "touch"
	case DirectiveNew:
		return "new"
	case DirectiveDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseDirective maps a modifier token to its directive. The match is case-sensitive.
func ParseDirective(token string) (Directive, bool) {
	switch token {
	case "touch":
		return DirectiveTouch, true
	case "new":
		return DirectiveNew, true
	case "delete":
		return DirectiveDelete, true
	default:
		return DirectiveNone, false
	}
}

// Fixture is one file found under a fixture project root.
type Fixture struct {
	// Name is the raw file name, e.g. "Foo.2.new.kt".
	Name string
	// FullPath is the location of the fixture file on disk.
	FullPath Path
	// LogicalPath is the slash-separated path of the target in the working copy,
	// relative to the source root, with stage and modifier tokens stripped.
	LogicalPath string
	// SourceExtension is the real extension of the target, without the dot.
	SourceExtension string
	Directive       Directive
	// Stage is the build cycle the directive belongs to; 0 means every cycle.
	Stage int
}

// HasStage reports whether the fixture is bound to a single stage.
func (f Fixture) HasStage() bool {
	return f.Stage > 0
}

// AppliesAt reports whether a staged directive should run in the given stage.
func (f Fixture) AppliesAt(stage int) bool {
	if f.Directive == DirectiveNone {
		return false
	}

	return !f.HasStage() || f.Stage == stage
}

// FixtureSet holds every fixture of one project together with the raw file names.
type FixtureSet struct {
	Name     string
	Root     Path
	Fixtures []Fixture
	RawNames []string
	// BuildLog is the selected expected-results log, empty when none exists.
	BuildLog Path
}

// Verdict is the outcome of validating a fixture set.
type Verdict struct {
	Supported bool
	Reason    string
}

// Supported is the verdict for a runnable fixture set.
func Supported() Verdict {
	return Verdict{Supported: true}
}

// Unsupported is the verdict for a fixture set that must be skipped.
func Unsupported(reason string) Verdict {
	return Verdict{Supported: false, Reason: reason}
}
