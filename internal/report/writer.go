package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/summarizer"
)

// Writer defines the interface for analysis report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. The same report can go to a file, stdout or both.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *AnalysisReport) (int, error)
}

// AnalysisReport is everything the human-facing reports show about a run.
type AnalysisReport struct {
	// RunID identifies the run the report belongs to.
	RunID string `json:"run_id"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Summary aggregates the analyzed files.
	Summary model.RiskSummary `json:"summary"`

	// TopFiles are the riskiest files, highest score first.
	TopFiles []model.RiskyFile `json:"top_files"`

	// AIComment is the optional remote model commentary.
	AIComment string `json:"ai_comment,omitempty"`

	// Artifacts maps artifact kinds to written paths. Only the terminal
	// summary shows them.
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// NewAnalysisReport builds the report for stats.
func NewAnalysisReport(runID string, generatedAt time.Time, stats *model.Stats, comment string) *AnalysisReport {
	return &AnalysisReport{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Summary:     summarizer.Summarize(stats),
		TopFiles:    summarizer.TopRiskyFiles(stats, summarizer.DefaultTopFiles),
		AIComment:   comment,
	}
}

// NewRunReport builds the report for a finished pipeline run.
func NewRunReport(run *model.Run, generatedAt time.Time) *AnalysisReport {
	r := NewAnalysisReport(run.RunID, generatedAt, run.Stats, run.AIComment)
	if run.Summary != nil {
		r.Summary = *run.Summary
	}
	if len(run.Artifacts) > 0 {
		r.Artifacts = make(map[string]string, len(run.Artifacts))
		for k, v := range run.Artifacts {
			r.Artifacts[k] = v
		}
	}
	return r
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *AnalysisReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Permissions for written artifacts.
const (
	// ArtifactFileMode is used for stats, summaries and Markdown reports.
	ArtifactFileMode os.FileMode = 0o644
	// IntegrityFileMode is used for the integrity report.
	IntegrityFileMode os.FileMode = 0o600
	// dirMode is used for parent directories created on demand.
	dirMode os.FileMode = 0o750
)

// WriteFile creates path (and its parent directories) with perm and lets
// render fill it. A failed render leaves no partial file behind.
func WriteFile(path string, perm os.FileMode, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := render(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	// OpenFile leaves the mode of an existing file alone.
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return nil
}
