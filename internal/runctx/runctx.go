package runctx

import (
	"fmt"
	"path/filepath"
)

// RunIDLayout is the time layout of run identifiers, always in UTC.
const RunIDLayout = "20060102T150405Z"

// Default artifact directories, relative to the working directory.
const (
	DefaultStatsDir  = "examples"
	DefaultReportDir = "reports"
)

// NewRunID derives a run identifier from clock.
func NewRunID(clock Clock) string {
	return clock.Now().UTC().Format(RunIDLayout)
}

// OutputPaths are the artifact locations of one run.
// An empty IntegrityReport disables the integrity artifact.
type OutputPaths struct {
	Stats           string
	AISummary       string
	AIReport        string
	IntegrityReport string
}

// DefaultOutputPaths returns the stats and summary locations for runID.
func DefaultOutputPaths(runID string) OutputPaths {
	return OutputPaths{
		Stats:     filepath.Join(DefaultStatsDir, fmt.Sprintf("stats_%s.json", runID)),
		AISummary: filepath.Join(DefaultStatsDir, fmt.Sprintf("ai_summary_%s.json", runID)),
		AIReport:  filepath.Join(DefaultReportDir, fmt.Sprintf("ai_report_%s.md", runID)),
	}
}

// RunContext is passed to every pipeline step of a run.
type RunContext struct {
	RunID string
	Paths OutputPaths
	Clock Clock
}

// New builds a RunContext from clock, filling any empty path in overrides
// with its default.
func New(clock Clock, overrides OutputPaths) *RunContext {
	if clock == nil {
		clock = SystemClock{}
	}
	id := NewRunID(clock)
	paths := DefaultOutputPaths(id)
	if overrides.Stats != "" {
		paths.Stats = overrides.Stats
	}
	if overrides.AISummary != "" {
		paths.AISummary = overrides.AISummary
	}
	if overrides.AIReport != "" {
		paths.AIReport = overrides.AIReport
	}
	paths.IntegrityReport = overrides.IntegrityReport

	return &RunContext{RunID: id, Paths: paths, Clock: clock}
}
