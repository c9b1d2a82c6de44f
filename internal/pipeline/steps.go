package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nao1215/metahunter/internal/analysis"
	"github.com/nao1215/metahunter/internal/cleaner"
	"github.com/nao1215/metahunter/internal/integrity"
	"github.com/nao1215/metahunter/internal/log"
	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/report"
	"github.com/nao1215/metahunter/internal/runctx"
	"github.com/nao1215/metahunter/internal/summarizer"
)

// stepBase holds what every step needs for reporting.
type stepBase struct {
	events *log.EventLogger
	logger *slog.Logger
}

// StepOption configures any step.
type StepOption func(*stepBase)

// WithStepEvents sets the run event log the step writes to.
func WithStepEvents(events *log.EventLogger) StepOption {
	return func(s *stepBase) {
		s.events = events
	}
}

// WithStepLogger sets the diagnostic logger of the step.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(s *stepBase) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newStepBase(opts []StepOption) stepBase {
	s := stepBase{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// CleanStep writes a metadata-free copy of every input file into the
// output directory, preserving paths relative to the input directory.
//
// Files the cleaner fails on are recorded in run.CleanErrors and left out
// of the rest of the run.
type CleanStep struct {
	stepBase
	cleaner *cleaner.Cleaner
	batch   *BatchProcessor
}

// NewCleanStep creates a cleaning step.
func NewCleanStep(c *cleaner.Cleaner, batch *BatchProcessor, opts ...StepOption) *CleanStep {
	if batch == nil {
		batch = NewBatchProcessor()
	}
	return &CleanStep{stepBase: newStepBase(opts), cleaner: c, batch: batch}
}

// Name returns the step name.
func (s *CleanStep) Name() string {
	return "clean"
}

// Do executes the cleaning step.
func (s *CleanStep) Do(ctx context.Context, run *model.Run) error {
	outputs := make([]string, len(run.InputFiles))
	results := make([]*cleaner.Result, len(run.InputFiles))
	for i, in := range run.InputFiles {
		outputs[i] = OutputPathFor(run.InputDir, run.OutputDir, in)
	}

	errs, err := s.batch.ProcessBatch(ctx, run.InputFiles, func(ctx context.Context, i int, in string) error {
		res, err := s.cleaner.Clean(ctx, in, outputs[i])
		results[i] = res
		return err
	})
	if err != nil {
		return fmt.Errorf("cleaning interrupted: %w", err)
	}

	// Report in input order so the event log is reproducible.
	for i, in := range run.InputFiles {
		if errs[i] != nil {
			run.CleanErrors = append(run.CleanErrors, model.FileError{Path: in, Error: errs[i].Error()})
			s.events.Error(ctx, ModuleCleaner, EventFileCleanError,
				slog.String("input", in),
				slog.String("error", errs[i].Error()),
			)
			s.logger.Warn("failed to clean file", "input", in, "error", errs[i])
			continue
		}

		var removed []string
		if results[i] != nil {
			removed = results[i].Removed
		}
		run.Cleaned = append(run.Cleaned, model.CleanedFile{Input: in, Output: outputs[i], Removed: removed})
		s.events.Info(ctx, ModuleCleaner, EventFileCleaned,
			slog.String("input", in),
			slog.String("output", outputs[i]),
		)
		s.logger.Debug("cleaned file", "input", in, "output", outputs[i], "removed", len(removed))
	}
	return nil
}

// OutputPathFor maps an input file to its location under outputDir.
// Files outside inputDir land directly in outputDir.
func OutputPathFor(inputDir, outputDir, in string) string {
	rel, err := filepath.Rel(inputDir, in)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(in)
	}
	return filepath.Join(outputDir, rel)
}

// AnalyzeStep analyzes the cleaned files and summarizes the batch.
type AnalyzeStep struct {
	stepBase
	analyzer *analysis.Analyzer
}

// NewAnalyzeStep creates an analysis step.
func NewAnalyzeStep(a *analysis.Analyzer, opts ...StepOption) *AnalyzeStep {
	return &AnalyzeStep{stepBase: newStepBase(opts), analyzer: a}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do executes the analysis step.
func (s *AnalyzeStep) Do(ctx context.Context, run *model.Run) error {
	stats, err := s.analyzer.AnalyzeFiles(ctx, run.CleanedPaths())
	if err != nil {
		return fmt.Errorf("failed to analyze cleaned files: %w", err)
	}
	summary := summarizer.Summarize(stats)
	run.Stats = stats
	run.Summary = &summary

	s.logger.Debug("analysis complete",
		"files", stats.Len(),
		"high", summary.RiskHigh,
		"medium", summary.RiskMedium,
	)
	return nil
}

// StatsStep persists run.Stats as the stats artifact.
type StatsStep struct {
	stepBase
	path string
}

// NewStatsStep creates a step writing stats to path.
func NewStatsStep(path string, opts ...StepOption) *StatsStep {
	return &StatsStep{stepBase: newStepBase(opts), path: path}
}

// Name returns the step name.
func (s *StatsStep) Name() string {
	return "stats"
}

// Do executes the stats step.
func (s *StatsStep) Do(ctx context.Context, run *model.Run) error {
	if run.Stats == nil {
		run.Stats = model.NewStats()
	}
	if err := report.WriteStatsFile(s.path, run.Stats); err != nil {
		return err
	}
	run.SetArtifact(model.ArtifactStats, s.path)

	s.events.Info(ctx, ModuleAnalyzer, EventStatsSaved,
		slog.String("output", s.path),
		slog.Int("files", run.Stats.Len()),
	)
	return nil
}

// SummaryStep writes the risk summary and the Markdown analysis report,
// asking the summarizer for an optional comment.
//
// Failures are logged as ai_pipeline_error and never fail the run.
type SummaryStep struct {
	stepBase
	summarizer summarizer.Summarizer
	paths      runctx.OutputPaths
	clock      runctx.Clock
}

// NewSummaryStep creates a summary step. A nil summarizer is Disabled.
func NewSummaryStep(sum summarizer.Summarizer, paths runctx.OutputPaths, clock runctx.Clock, opts ...StepOption) *SummaryStep {
	if sum == nil {
		sum = summarizer.Disabled{}
	}
	if clock == nil {
		clock = runctx.SystemClock{}
	}
	return &SummaryStep{stepBase: newStepBase(opts), summarizer: sum, paths: paths, clock: clock}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the summary step.
func (s *SummaryStep) Do(ctx context.Context, run *model.Run) error {
	s.events.Info(ctx, ModuleAIClient, EventAIPipelineStarted,
		slog.String("stats_path", s.paths.Stats),
		slog.String("summary_path", s.paths.AISummary),
		slog.String("report_path", s.paths.AIReport),
	)

	if err := s.run(ctx, run); err != nil {
		s.events.Error(ctx, ModuleAIClient, EventAIPipelineError, slog.String("error", err.Error()))
		s.logger.Warn("summary failed", "error", err)
		return nil
	}

	s.events.Info(ctx, ModuleAIClient, EventAIPipelineFinished,
		slog.String("stats_path", s.paths.Stats),
		slog.String("summary_path", s.paths.AISummary),
		slog.String("report_path", s.paths.AIReport),
	)
	return nil
}

func (s *SummaryStep) run(ctx context.Context, run *model.Run) error {
	if run.Summary == nil {
		summary := summarizer.Summarize(run.Stats)
		run.Summary = &summary
	}

	if err := report.WriteSummaryFile(s.paths.AISummary, *run.Summary); err != nil {
		return err
	}
	run.SetArtifact(model.ArtifactAISummary, s.paths.AISummary)
	s.events.Info(ctx, ModuleAIClient, EventAISummarySaved, slog.String("summary_path", s.paths.AISummary))

	comment, err := s.summarizer.Comment(ctx, *run.Summary)
	if err != nil {
		s.logger.Warn("summarizer unavailable", "error", err)
		comment = ""
	}
	run.AIComment = comment

	var buf bytes.Buffer
	if _, err := report.NewMarkdownWriter(&buf).Write(report.NewRunReport(run, s.clock.Now())); err != nil {
		return fmt.Errorf("failed to render analysis report: %w", err)
	}
	if err := report.WriteFile(s.paths.AIReport, report.ArtifactFileMode, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	}); err != nil {
		return err
	}
	run.SetArtifact(model.ArtifactAIReport, s.paths.AIReport)

	s.events.Info(ctx, ModuleAIClient, EventAIReportSaved,
		slog.String("summary_path", s.paths.AISummary),
		slog.String("report_path", s.paths.AIReport),
		slog.Bool("used_openai", comment != ""),
	)
	return nil
}

// IntegrityStep commits the cleaned files' digests to an integrity report.
//
// Errors, including an empty batch, are logged as integrity_report_error
// and never fail the run.
type IntegrityStep struct {
	stepBase
	path string
}

// NewIntegrityStep creates a step writing the integrity report to path.
func NewIntegrityStep(path string, opts ...StepOption) *IntegrityStep {
	return &IntegrityStep{stepBase: newStepBase(opts), path: path}
}

// Name returns the step name.
func (s *IntegrityStep) Name() string {
	return "integrity"
}

// Do executes the integrity step.
func (s *IntegrityStep) Do(ctx context.Context, run *model.Run) error {
	fileHashes := integrity.NewFileHashes()
	for _, fa := range run.Stats.All() {
		if fa.SHA256 != "" {
			fileHashes.Set(fa.Path, fa.SHA256)
		}
	}

	ir, err := integrity.BuildIntegrityReport(fileHashes)
	if err == nil {
		err = report.WriteIntegrityFile(s.path, ir)
	}
	if err != nil {
		s.events.Error(ctx, ModuleCLI, EventIntegrityReportError, slog.String("error", err.Error()))
		s.logger.Warn("integrity report failed", "error", err)
		return nil
	}

	run.Integrity = ir
	run.SetArtifact(model.ArtifactIntegrityReport, s.path)
	s.events.Info(ctx, ModuleCLI, EventIntegrityReportGenerated,
		slog.String("output", s.path),
		slog.Int("files", ir.FileCount()),
		slog.String("algorithm", ir.Algorithm),
	)
	return nil
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// HistoryStep records the run in the history database.
// Failures are logged as history_error and never fail the run.
type HistoryStep struct {
	stepBase
	store RunStore
	clock runctx.Clock
}

// NewHistoryStep creates a history step.
func NewHistoryStep(store RunStore, clock runctx.Clock, opts ...StepOption) *HistoryStep {
	if clock == nil {
		clock = runctx.SystemClock{}
	}
	return &HistoryStep{stepBase: newStepBase(opts), store: store, clock: clock}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do executes the history step.
func (s *HistoryStep) Do(ctx context.Context, run *model.Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.clock.Now()
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.events.Warning(ctx, ModuleHistory, EventHistoryError, slog.String("error", err.Error()))
		s.logger.Warn("failed to record run history", "error", err)
		return nil
	}
	s.events.Info(ctx, ModuleHistory, EventHistorySaved, slog.Int("files", run.Stats.Len()))
	return nil
}
