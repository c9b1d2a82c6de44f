package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/nao1215/metahunter/internal/log"
	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/runctx"
)

// Runner wraps a Pipeline with the run lifecycle: it resolves the
// directories, collects the input files and brackets the steps with the
// run_started and run_finished events.
type Runner struct {
	pipeline  *Pipeline
	events    *log.EventLogger
	logger    *slog.Logger
	clock     runctx.Clock
	recursive bool
	useAI     bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerEvents sets the run event log.
func WithRunnerEvents(events *log.EventLogger) RunnerOption {
	return func(r *Runner) {
		r.events = events
	}
}

// WithRunnerLogger sets the diagnostic logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunnerClock sets the clock stamping the run's finish time.
func WithRunnerClock(clock runctx.Clock) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRecursive makes the runner collect input files recursively.
func WithRecursive(recursive bool) RunnerOption {
	return func(r *Runner) {
		r.recursive = recursive
	}
}

// WithUseAI records in run_started whether the summary stage is enabled.
func WithUseAI(useAI bool) RunnerOption {
	return func(r *Runner) {
		r.useAI = useAI
	}
}

// NewRunner creates a Runner executing p.
func NewRunner(p *Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{
		pipeline: p,
		logger:   slog.Default(),
		clock:    runctx.SystemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline for run.
//
// run.InputDir and run.OutputDir are made absolute and the output
// directory is created. When the input directory holds no files, a
// no_input_files warning is logged and Run returns nil without executing
// any step; run.InputFiles is then empty.
func (r *Runner) Run(ctx context.Context, run *model.Run) error {
	inputDir, err := filepath.Abs(run.InputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve input directory: %w", err)
	}
	outputDir, err := filepath.Abs(run.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	run.InputDir, run.OutputDir = inputDir, outputDir

	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	r.events.Info(ctx, ModuleCLI, EventRunStarted,
		slog.String("input_dir", inputDir),
		slog.String("output_dir", outputDir),
		slog.Bool("use_ai", r.useAI),
	)

	files, err := CollectInputFiles(inputDir, r.recursive, outputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.events.Warning(ctx, ModuleCLI, EventNoInputFiles, slog.String("input_dir", inputDir))
		r.logger.Warn("no input files found", "input_dir", inputDir)
		return nil
	}
	run.InputFiles = files

	if err := r.pipeline.Execute(ctx, run); err != nil {
		return err
	}

	if run.FinishedAt.IsZero() {
		run.FinishedAt = r.clock.Now()
	}
	r.events.Info(ctx, ModuleCLI, EventRunFinished, slog.Int("files_processed", len(run.Cleaned)))
	return nil
}

// CollectInputFiles returns the regular files in dir sorted by path.
// Without recursive only the top level is listed. Hidden entries are
// included; symlinks are not followed. Subdirectories named in skip are
// not walked, so an output directory nested in dir never feeds back
// into the input.
func CollectInputFiles(dir string, recursive bool, skip ...string) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read input directory: %w", err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[filepath.Clean(s)] = true
	}
	root := filepath.Clean(dir)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root && skipped[filepath.Clean(path)] {
			return fs.SkipDir
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", err)
	}
	slices.Sort(files)
	return files, nil
}
