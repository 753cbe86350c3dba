package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// MultimoduleMarker is the file name that marks a multimodule fixture set.
const MultimoduleMarker = "dependencies.txt"

const (
	reasonMultimodule   = "multimodule tests are not supported yet"
	reasonNoSources     = "no known sources found"
	reasonUnsupportedFn = "unsupported modification extension %s"
	reasonUnknownFn     = "unknown staged file %s"
)

// FixturePolicy configures which fixture sets the validator accepts.
type FixturePolicy struct {
	// SourceExtensions are the recognized compiled-source extensions, without dots.
	SourceExtensions []string
	// UnsupportedDirectives make a fixture set unsupported when present.
	UnsupportedDirectives []m.Directive
}

// DefaultFixturePolicy accepts Kotlin and Java sources and rejects touch
// directives, which depend on timestamp semantics that are not portable.
func DefaultFixturePolicy() FixturePolicy {
	return FixturePolicy{
		SourceExtensions:      []string{m.KindKotlin.Extension(), m.KindJava.Extension()},
		UnsupportedDirectives: []m.Directive{m.DirectiveTouch},
	}
}

// IsSourceExtension reports whether ext is a recognized source extension.
func (p FixturePolicy) IsSourceExtension(ext string) bool {
	return slices.Contains(p.SourceExtensions, ext)
}

// Validator decides whether a fixture set is a supported single-module case.
type Validator interface {
	Validate(fixtures []m.Fixture, rawNames []string) m.Verdict
}

type validator struct {
	policy FixturePolicy
}

// NewValidator constructs a Validator for the given policy.
func NewValidator(policy FixturePolicy) Validator {
	return &validator{policy: policy}
}

// Validate applies the rules in order; the first matching rule decides.
func (v *validator) Validate(fixtures []m.Fixture, rawNames []string) m.Verdict {
	for _, name := range rawNames {
		if strings.EqualFold(name, MultimoduleMarker) {
			return m.Unsupported(reasonMultimodule)
		}
	}

	ordered := append([]m.Fixture(nil), fixtures...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FullPath < ordered[j].FullPath
	})

	for _, fixture := range ordered {
		if slices.Contains(v.policy.UnsupportedDirectives, fixture.Directive) {
			return m.Unsupported(fmt.Sprintf(reasonUnsupportedFn, fixture.Name))
		}
	}

	for _, fixture := range ordered {
		if fixture.Directive != m.DirectiveNone && !v.policy.IsSourceExtension(fixture.SourceExtension) {
			return m.Unsupported(fmt.Sprintf(reasonUnknownFn, fixture.Name))
		}
	}

	for _, fixture := range ordered {
		if fixture.Directive == m.DirectiveNone && v.policy.IsSourceExtension(fixture.SourceExtension) {
			return m.Supported()
		}
	}

	return m.Unsupported(reasonNoSources)
}
