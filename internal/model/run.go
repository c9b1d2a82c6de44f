package model

import (
	"time"

	"github.com/nao1215/metahunter/internal/integrity"
)

// Run carries the state of one pipeline execution from step to step.
//
// Design decision: a single struct passed by pointer, in the same spirit
// as one report accumulated by every step, keeps the step interface to
// one method and makes the finished run directly storable.
type Run struct {
	// RunID identifies the run, e.g. 20251120T225112Z.
	RunID string `json:"run_id"`

	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`

	// DryRun copies files without cleaning them.
	DryRun bool `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// InputFiles are the files found in InputDir, sorted by path.
	InputFiles []string `json:"input_files"`

	// Cleaned lists the files written to OutputDir, in InputFiles order.
	Cleaned []CleanedFile `json:"cleaned"`

	// CleanErrors lists files the cleaner failed on. They are skipped.
	CleanErrors []FileError `json:"clean_errors,omitempty"`

	// Stats is the analysis of the cleaned files.
	Stats *Stats `json:"stats,omitempty"`

	// Summary aggregates Stats.
	Summary *RiskSummary `json:"summary,omitempty"`

	// AIComment is the remote summarizer commentary, if any.
	AIComment string `json:"ai_comment,omitempty"`

	// Integrity is the integrity report over the cleaned files, if requested.
	Integrity *integrity.IntegrityReport `json:"integrity,omitempty"`

	// Artifacts maps artifact kinds (stats, ai_summary, ai_report,
	// integrity_report) to the paths written.
	Artifacts map[string]string `json:"artifacts,omitempty"`

	// CompletedSteps names the pipeline steps that finished without error.
	CompletedSteps []string `json:"completed_steps,omitempty"`
}

// CleanedFile pairs an input file with its cleaned copy.
type CleanedFile struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	// Removed lists what the cleaner stripped, e.g. "APP1 Exif".
	Removed []string `json:"removed,omitempty"`
}

// FileError records a per-file failure.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// NewRun returns a Run for runID.
func NewRun(runID, inputDir, outputDir string, startedAt time.Time) *Run {
	return &Run{
		RunID:     runID,
		InputDir:  inputDir,
		OutputDir: outputDir,
		StartedAt: startedAt,
		Artifacts: make(map[string]string),
	}
}

// CleanedPaths returns the output paths of the cleaned files in order.
func (r *Run) CleanedPaths() []string {
	out := make([]string, len(r.Cleaned))
	for i, c := range r.Cleaned {
		out[i] = c.Output
	}
	return out
}

// SetArtifact records that kind was written to path.
func (r *Run) SetArtifact(kind, path string) {
	if r.Artifacts == nil {
		r.Artifacts = make(map[string]string)
	}
	r.Artifacts[kind] = path
}

// Duration returns the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Artifact kinds.
const (
	ArtifactStats           = "stats"
	ArtifactAISummary       = "ai_summary"
	ArtifactAIReport        = "ai_report"
	ArtifactIntegrityReport = "integrity_report"
)
