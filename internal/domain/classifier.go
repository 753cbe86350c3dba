package domain

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// stagedName matches <base>[.<stage>].<modifier>.<ext>. The base is lazy so a
// numeric segment directly before the modifier is always read as the stage.
// A stage-shaped last token belongs to trailingName instead.
var stagedName = regexp.MustCompile(
	`^(?P<base>.+?)(?:\.(?P<stage>[1-9][0-9]{0,8}))?\.(?P<modifier>touch|new|delete)\.(?P<ext>[^.]+)$`,
)

// trailingName matches the <name>.<modifier>[.<stage>] form, where the
// target keeps its own extension in front of the modifier. When it carries a
// stage it takes precedence over stagedName.
var trailingName = regexp.MustCompile(
	`^(?P<target>.+)\.(?P<modifier>touch|new|delete)(?:\.(?P<stage>[1-9][0-9]{0,8}))?$`,
)

// Classify parses a fixture file name into its logical identity and optional
// directive. It never fails: names without a recognized modifier are plain
// sources.
func Classify(fileName string) m.Fixture {
	if match := trailingName.FindStringSubmatch(fileName); match != nil && group(trailingName, match, "stage") != "" {
		return trailingFixture(fileName, match)
	}

	if match := stagedName.FindStringSubmatch(fileName); match != nil {
		ext := group(stagedName, match, "ext")

		return m.Fixture{
			Name:            fileName,
			LogicalPath:     group(stagedName, match, "base") + "." + ext,
			SourceExtension: ext,
			Directive:       mustDirective(group(stagedName, match, "modifier")),
			Stage:           parseStage(group(stagedName, match, "stage")),
		}
	}

	if match := trailingName.FindStringSubmatch(fileName); match != nil {
		return trailingFixture(fileName, match)
	}

	return m.Fixture{
		Name:            fileName,
		LogicalPath:     fileName,
		SourceExtension: extensionOf(fileName),
		Directive:       m.DirectiveNone,
	}
}

func trailingFixture(fileName string, match []string) m.Fixture {
	target := group(trailingName, match, "target")

	return m.Fixture{
		Name:            fileName,
		LogicalPath:     target,
		SourceExtension: extensionOf(target),
		Directive:       mustDirective(group(trailingName, match, "modifier")),
		Stage:           parseStage(group(trailingName, match, "stage")),
	}
}

// ClassifyRelative classifies the last element of a slash-separated relative
// path and keeps the directory part in the logical path.
func ClassifyRelative(relPath string) m.Fixture {
	dir, name := path.Split(relPath)
	fixture := Classify(name)
	fixture.LogicalPath = dir + fixture.LogicalPath

	return fixture
}

func group(re *regexp.Regexp, match []string, name string) string {
	return match[re.SubexpIndex(name)]
}

func mustDirective(token string) m.Directive {
	directive, ok := m.ParseDirective(token)
	if !ok {
		// unreachable: the patterns only admit known modifiers
		return m.DirectiveNone
	}

	return directive
}

func parseStage(token string) int {
	if token == "" {
		return 0
	}

	stage, err := strconv.Atoi(token)
	if err != nil {
		return 0
	}

	return stage
}

func extensionOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}

	return name[idx+1:]
}
