package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		logicalPath string
		ext         string
		directive   m.Directive
		stage       int
	}{
		{"plain source", "Foo.kt", "Foo.kt", "kt", m.DirectiveNone, 0},
		{"unstaged new", "Foo.new.kt", "Foo.kt", "kt", m.DirectiveNew, 0},
		{"staged new", "Foo.2.new.kt", "Foo.kt", "kt", m.DirectiveNew, 2},
		{"staged delete", "Foo.1.delete.java", "Foo.java", "java", m.DirectiveDelete, 1},
		{"touch", "Bar.touch.kt", "Bar.kt", "kt", m.DirectiveTouch, 0},
		{"dotted base", "a.b.3.new.kt", "a.b.kt", "kt", m.DirectiveNew, 3},
		{"numeral in base name", "Version2.new.kt", "Version2.kt", "kt", m.DirectiveNew, 0},
		{"zero is not a stage", "Foo.0.new.kt", "Foo.0.kt", "kt", m.DirectiveNew, 0},
		{"trailing modifier without extension", "Bad.delete", "Bad", "", m.DirectiveDelete, 0},
		{"trailing modifier keeps target extension", "A.kt.delete", "A.kt", "kt", m.DirectiveDelete, 0},
		{"trailing staged new", "A.kt.new.2", "A.kt", "kt", m.DirectiveNew, 2},
		{"trailing staged delete", "A.kt.delete.1", "A.kt", "kt", m.DirectiveDelete, 1},
		{"trailing staged without extension", "Foo.new.2", "Foo", "", m.DirectiveNew, 2},
		{"trailing stage beats numeric extension", "B.java.touch.12", "B.java", "java", m.DirectiveTouch, 12},
		{"trailing zero is an extension", "Foo.new.0", "Foo.0", "0", m.DirectiveNew, 0},
		{"modifier lookalike", "Foo.newer.kt", "Foo.newer.kt", "kt", m.DirectiveNone, 0},
		{"build log", "build.log", "build.log", "log", m.DirectiveNone, 0},
		{"no extension", "README", "README", "", m.DirectiveNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.file)

			assert.Equal(t, tt.file, got.Name)
			assert.Equal(t, tt.logicalPath, got.LogicalPath)
			assert.Equal(t, tt.ext, got.SourceExtension)
			assert.Equal(t, tt.directive, got.Directive)
			assert.Equal(t, tt.stage, got.Stage)
		})
	}
}

func TestClassifyRelative_KeepsDirectory(t *testing.T) {
	got := ClassifyRelative("pkg/sub/Foo.1.new.kt")

	assert.Equal(t, "Foo.1.new.kt", got.Name)
	assert.Equal(t, "pkg/sub/Foo.kt", got.LogicalPath)
	assert.Equal(t, m.DirectiveNew, got.Directive)
	assert.Equal(t, 1, got.Stage)
}

func TestFixture_AppliesAt(t *testing.T) {
	staged := Classify("Foo.2.new.kt")
	assert.False(t, staged.AppliesAt(1))
	assert.True(t, staged.AppliesAt(2))

	everyStage := Classify("Foo.new.kt")
	assert.True(t, everyStage.AppliesAt(1))
	assert.True(t, everyStage.AppliesAt(7))

	plain := Classify("Foo.kt")
	assert.False(t, plain.AppliesAt(1))
}
