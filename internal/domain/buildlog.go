package domain

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

const (
	beginCompiling    = "Compiling files:"
	beginCleaning     = "Cleaning output files:"
	endOfFiles        = "End of files"
	compilationFailed = "COMPILATION FAILED"
	exitCodePrefix    = "Exit code:"
)

var stepHeader = regexp.MustCompile(`^=+\s*Step\s*#\s*(\d+)\s*=+$`)

type blockKind int

const (
	noBlock blockKind = iota
	compilingBlock
	cleaningBlock
)

// stepBuilder accumulates one record while scanning.
type stepBuilder struct {
	step       m.BuildStep
	headed     bool
	structural bool
	block      blockKind
	inErrors   bool
	startLine  int
}

func newStepBuilder(headed bool, line int) *stepBuilder {
	return &stepBuilder{
		step: m.BuildStep{
			CompileSucceeded: true,
			CompiledFiles:    m.NewCompiledFiles(),
		},
		headed:    headed,
		startLine: line,
	}
}

// ParseBuildLog decomposes a JPS-style build log into its ordered steps.
// Lines that do not belong to a record are skipped. A log that yields no
// record, or leaves a file block open, is malformed.
func ParseBuildLog(text string) (m.BuildLog, error) {
	var (
		steps   m.BuildLog
		current = newStepBuilder(false, 1)
		lineNo  int
	)

	flush := func() error {
		if current.block != noBlock {
			return fmt.Errorf("%w: file list opened at step starting on line %d is not terminated by %q",
				ErrMalformedLog, current.startLine, endOfFiles)
		}

		if current.headed || current.structural {
			steps = append(steps, current.step)
		}

		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if stepHeader.MatchString(line) {
			// text before the first header is preamble, not a record
			if current.headed {
				if err := flush(); err != nil {
					return nil, err
				}
			} else if current.block != noBlock {
				return nil, fmt.Errorf("%w: file list before line %d is not terminated by %q", ErrMalformedLog, lineNo, endOfFiles)
			}

			current = newStepBuilder(true, lineNo)

			continue
		}

		current.consume(line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedLog, err)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no build steps found", ErrMalformedLog)
	}

	return steps, nil
}

func (b *stepBuilder) consume(line string) {
	switch {
	case b.block != noBlock:
		if line == endOfFiles {
			b.block = noBlock
			return
		}

		if b.block == compilingBlock && line != "" {
			b.step.CompiledFiles.Add(line)
		}
	case line == beginCompiling:
		b.block = compilingBlock
		b.structural = true
		b.inErrors = false
	case line == beginCleaning:
		b.block = cleaningBlock
		b.structural = true
		b.inErrors = false
	case line == compilationFailed:
		b.step.CompileSucceeded = false
		b.structural = true
		b.inErrors = true
	case strings.HasPrefix(line, exitCodePrefix):
		b.structural = true
		b.inErrors = false

		switch strings.TrimSpace(strings.TrimPrefix(line, exitCodePrefix)) {
		case "ABORT", "ERROR":
			b.step.CompileSucceeded = false
		}
	case b.inErrors && line != "" && !isSeparator(line):
		b.step.CompileErrors = append(b.step.CompileErrors, line)
	}
}

func isSeparator(line string) bool {
	return strings.Trim(line, "-=") == ""
}
