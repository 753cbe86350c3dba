package model

import "time"

// RunStatus is the terminal outcome of one project run.
type RunStatus int

const (
	// Passed indicates every stage matched its expected outcome.
	Passed RunStatus = iota
	// Failed indicates a fatal assertion during the run.
	Failed
	// Skipped indicates the fixture set is not supported.
	Skipped
)

func (s RunStatus) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RunStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "passed":
		*s = Passed
	case "failed":
		*s = Failed
	case "skipped":
		*s = Skipped
	default:
		*s = Failed
	}

	return nil
}

// RunState is the orchestrator state machine position.
type RunState string

const (
	StateInit         RunState = "init"
	StateValidating   RunState = "validating"
	StateUnsupported  RunState = "unsupported"
	StateInitialBuild RunState = "initial-build"
	StateParsingLog   RunState = "parsing-log"
	StateCycling      RunState = "cycling"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

// StageReport describes one mutate/build/compare cycle.
type StageReport struct {
	Stage           int                 `yaml:"stage"`
	Applied         []string            `yaml:"applied,omitempty"`
	ExpectSucceeded bool                `yaml:"expect_succeeded"`
	Succeeded       bool                `yaml:"succeeded"`
	Expected        map[string][]string `yaml:"expected,omitempty"`
	Actual          map[string][]string `yaml:"actual,omitempty"`
	Matched         bool                `yaml:"matched"`
}

// RunReport is the result of running one fixture project.
type RunReport struct {
	RunID   string        `yaml:"run_id"`
	Project string        `yaml:"project"`
	Root    Path          `yaml:"root"`
	Status  RunStatus     `yaml:"status"`
	State   RunState      `yaml:"state"`
	Reason  string        `yaml:"reason,omitempty"`
	Weak    bool          `yaml:"weak"`
	Stages  []StageReport `yaml:"stages,omitempty"`
	Error   string        `yaml:"error,omitempty"`
	// Output is the build output of the whole run, kept only for failed runs.
	Output   string        `yaml:"output,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

// ProjectSummary describes a discovered fixture project without running it.
type ProjectSummary struct {
	Project   string
	Root      Path
	Supported bool
	Reason    string
	// Steps is the number of build log records, or -1 when the log is unusable.
	Steps      int
	Sources    int
	Directives int
}

// Summary counts run outcomes.
type Summary struct {
	Passed  int
	Failed  int
	Skipped int
}

// Total is the number of runs counted.
func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// Summarize counts the outcomes of reports.
func Summarize(reports []RunReport) Summary {
	var summary Summary

	for _, report := range reports {
		switch report.Status {
		case Passed:
			summary.Passed++
		case Failed:
			summary.Failed++
		case Skipped:
			summary.Skipped++
		}
	}

	return summary
}
