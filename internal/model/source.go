// Package model defines the data structures shared by the staged build harness.
package model

import (
	"path/filepath"
	"sort"
	"strings"
)

// Path represents a file system path.
type Path string

// SourceKind identifies the language family of a compiled source file.
type SourceKind string

const (
	// KindKotlin is the primary compiled language (.kt sources).
	KindKotlin SourceKind = "kotlin"
	// KindJava is the host language compiled alongside it (.java sources).
	KindJava SourceKind = "java"
)

// SourceKinds lists every kind a build step reports, in display order.
var SourceKinds = []SourceKind{KindKotlin, KindJava}

// Extension returns the file extension (without dot) for the kind.
func (k SourceKind) Extension() string {
	switch k {
	case KindKotlin:
		return "kt"
	case KindJava:
		return "java"
	default:
		return ""
	}
}

// KindForPath returns the source kind for a path based on its extension.
func KindForPath(path string) (SourceKind, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, kind := range SourceKinds {
		if kind.Extension() == ext {
			return kind, true
		}
	}

	return "", false
}

// FileSet is a set of slash-separated relative paths.
type FileSet map[string]struct{}

// NewFileSet builds a FileSet from the given paths.
func NewFileSet(paths ...string) FileSet {
	set := make(FileSet, len(paths))
	for _, p := range paths {
		set.Add(p)
	}

	return set
}

// Add inserts a path after normalizing separators.
func (s FileSet) Add(path string) {
	s[filepath.ToSlash(path)] = struct{}{}
}

// Contains reports whether path is in the set.
func (s FileSet) Contains(path string) bool {
	_, ok := s[filepath.ToSlash(path)]
	return ok
}

// Sorted returns the members in lexical order.
func (s FileSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}

	sort.Strings(out)

	return out
}

// Equal reports whether both sets hold the same paths.
func (s FileSet) Equal(other FileSet) bool {
	if len(s) != len(other) {
		return false
	}

	return s.SubsetOf(other)
}

// SubsetOf reports whether every path of s is also in other.
func (s FileSet) SubsetOf(other FileSet) bool {
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}

	return true
}

// CompiledFiles maps a source kind to the files of that kind compiled by a build.
type CompiledFiles map[SourceKind]FileSet

// NewCompiledFiles returns a mapping with an empty set for every known kind.
func NewCompiledFiles() CompiledFiles {
	files := make(CompiledFiles, len(SourceKinds))
	for _, kind := range SourceKinds {
		files[kind] = FileSet{}
	}

	return files
}

// Of returns the set for kind, never nil.
func (c CompiledFiles) Of(kind SourceKind) FileSet {
	if set, ok := c[kind]; ok && set != nil {
		return set
	}

	return FileSet{}
}

// Add classifies path by extension and records it. Unknown extensions are ignored.
func (c CompiledFiles) Add(path string) bool {
	kind, ok := KindForPath(path)
	if !ok {
		return false
	}

	set, exists := c[kind]
	if !exists || set == nil {
		set = FileSet{}
		c[kind] = set
	}

	set.Add(path)

	return true
}

// Lists converts the mapping into sorted slices keyed by kind name.
func (c CompiledFiles) Lists() map[string][]string {
	out := make(map[string][]string, len(SourceKinds))
	for _, kind := range SourceKinds {
		out[string(kind)] = c.Of(kind).Sorted()
	}

	return out
}
