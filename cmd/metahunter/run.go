package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/metahunter/internal/analysis"
	"github.com/nao1215/metahunter/internal/cleaner"
	"github.com/nao1215/metahunter/internal/config"
	"github.com/nao1215/metahunter/internal/database"
	"github.com/nao1215/metahunter/internal/log"
	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/pipeline"
	"github.com/nao1215/metahunter/internal/report"
	"github.com/nao1215/metahunter/internal/runctx"
	"github.com/nao1215/metahunter/internal/summarizer"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean, analyze and report on a directory of files",
		Long: `Run processes every file of the input directory:

1. writes a cleaned copy to the output directory
2. analyzes the cleaned copies and saves per-file stats as JSON
3. with --use-ai, writes a risk summary and a Markdown report
4. with --integrity-report, commits the batch to a SHA-256 Merkle root
5. records the run in the history database

Every step appends events to the JSONL log given with --log-path.

Examples:
  # Clean ./raw into ./clean
  metahunter run --input-dir raw --output-dir clean

  # Also write the AI report and an integrity report
  metahunter run --input-dir raw --output-dir clean --use-ai \
    --integrity-report reports/integrity.json

  # Copy without stripping to preview the analysis
  metahunter run --input-dir raw --output-dir preview --dry-run`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("input-dir", "i", "", "Directory with the raw files to process (required)")
	cmd.Flags().StringP("output-dir", "o", "", "Directory receiving the cleaned files (required)")
	cmd.Flags().StringP("log-path", "l", config.DefaultLogPath, "JSONL event log, appended to")
	cmd.Flags().Bool("use-ai", false, "Write the risk summary and the Markdown analysis report")
	cmd.Flags().String("stats-path", "", "Stats JSON path (default: examples/stats_<run_id>.json)")
	cmd.Flags().String("ai-summary-path", "", "Risk summary JSON path (default: examples/ai_summary_<run_id>.json)")
	cmd.Flags().String("ai-report-path", "", "Markdown report path (default: reports/ai_report_<run_id>.md)")
	cmd.Flags().String("integrity-report", "", "Write the Merkle root integrity report to this path")
	cmd.Flags().Bool("dry-run", false, "Copy files without stripping metadata")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of files processed concurrently")
	cmd.Flags().StringSlice("fingerprint", nil, "Extra fingerprints per file (blake2b-256, blake3)")
	cmd.Flags().BoolP("recursive", "r", false, "Walk the input directory recursively")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .metahunter in current or home directory)")
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	colored, err := useColor(cmd, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runPipeline(ctx, cfg, runOptions{
		logger:  logger,
		clock:   runctx.SystemClock{},
		out:     cmd.OutOrStdout(),
		colored: colored,
	})
}

// loadConfigFile applies the config file to cfg. Options set on the command
// line win over the file.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg.ConfigFilePath = path

	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return nil
	}

	f, err := config.LoadConfigFile(found)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	cfg.ApplyFile(f, cmd.Flags().Changed)
	return nil
}

// buildRunConfig creates a Config from the run command flags.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.InputDir, err = flags.GetString("input-dir"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.LogPath, err = flags.GetString("log-path"); err != nil {
		return nil, err
	}
	if cfg.UseAI, err = flags.GetBool("use-ai"); err != nil {
		return nil, err
	}
	if cfg.StatsPath, err = flags.GetString("stats-path"); err != nil {
		return nil, err
	}
	if cfg.AISummaryPath, err = flags.GetString("ai-summary-path"); err != nil {
		return nil, err
	}
	if cfg.AIReportPath, err = flags.GetString("ai-report-path"); err != nil {
		return nil, err
	}
	if cfg.IntegrityReportPath, err = flags.GetString("integrity-report"); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.Fingerprints, err = flags.GetStringSlice("fingerprint"); err != nil {
		return nil, err
	}
	if cfg.Recursive, err = flags.GetBool("recursive"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runOptions carries the process-level collaborators of runPipeline.
type runOptions struct {
	logger  *slog.Logger
	clock   runctx.Clock
	out     io.Writer
	colored bool

	// summarizer overrides the one built from the configuration.
	summarizer summarizer.Summarizer
}

// runPipeline executes one run and prints its outcome.
func runPipeline(ctx context.Context, cfg *config.Config, opts runOptions) error {
	logger := opts.logger
	rc := runctx.New(opts.clock, runctx.OutputPaths{
		Stats:           cfg.StatsPath,
		AISummary:       cfg.AISummaryPath,
		AIReport:        cfg.AIReportPath,
		IntegrityReport: cfg.IntegrityReportPath,
	})

	logFile, err := log.OpenEventFile(cfg.LogPath)
	if err != nil {
		return err
	}
	defer logFile.Close()
	events := log.NewEventLogger(logFile, rc.RunID, log.WithEventClock(rc.Clock))

	stepOpts := []pipeline.StepOption{
		pipeline.WithStepEvents(events),
		pipeline.WithStepLogger(logger),
	}

	batch := pipeline.NewBatchProcessor(
		pipeline.WithConcurrency(cfg.Workers),
		pipeline.WithBatchLogger(logger),
	)
	analyzer := analysis.New(
		analysis.WithWorkers(cfg.Workers),
		analysis.WithFingerprints(cfg.FingerprintAlgorithms()...),
		analysis.WithExtraAIKeywords(cfg.ExtraAIKeywords...),
		analysis.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewCleanStep(cleaner.New(cleaner.WithDryRun(cfg.DryRun), cleaner.WithLogger(logger)), batch, stepOpts...),
		pipeline.NewAnalyzeStep(analyzer, stepOpts...),
		pipeline.NewStatsStep(rc.Paths.Stats, stepOpts...),
	)
	if cfg.UseAI {
		sum := opts.summarizer
		if sum == nil {
			sum = newSummarizer(cfg, logger)
		}
		p.AddStep(pipeline.NewSummaryStep(sum, rc.Paths, rc.Clock, stepOpts...))
	}
	if rc.Paths.IntegrityReport != "" {
		p.AddStep(pipeline.NewIntegrityStep(rc.Paths.IntegrityReport, stepOpts...))
	}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history disabled", "error", err)
		} else {
			defer db.Close()
			p.AddStep(pipeline.NewHistoryStep(db, rc.Clock, stepOpts...))
		}
	}

	run := model.NewRun(rc.RunID, cfg.InputDir, cfg.OutputDir, rc.Clock.Now())
	run.DryRun = cfg.DryRun

	runner := pipeline.NewRunner(p,
		pipeline.WithRunnerEvents(events),
		pipeline.WithRunnerLogger(logger),
		pipeline.WithRunnerClock(rc.Clock),
		pipeline.WithRecursive(cfg.Recursive),
		pipeline.WithUseAI(cfg.UseAI),
	)
	if err := runner.Run(ctx, run); err != nil {
		return err
	}

	newProgressPrinter(opts.out, opts.colored).printRun(run, cfg.UseAI, rc.Paths.IntegrityReport != "")
	if len(run.InputFiles) == 0 {
		return nil
	}

	fmt.Fprintln(opts.out)
	w := report.NewSimpleWriter(opts.out,
		report.WithVerbose(cfg.Verbose),
		report.WithColor(opts.colored),
	)
	_, err = w.Write(report.NewRunReport(run, rc.Clock.Now()))
	return err
}

// newSummarizer returns the remote model when an API key is available and
// the disabled summarizer otherwise.
func newSummarizer(cfg *config.Config, logger *slog.Logger) summarizer.Summarizer {
	remote, err := summarizer.NewRemoteModelFromEnv(cfg.AIEndpoint, cfg.AIAPIKeyEnv, cfg.AIModel,
		summarizer.WithTimeout(cfg.AITimeout),
		summarizer.WithLogger(logger),
	)
	if err != nil {
		if errors.Is(err, summarizer.ErrNoCredentials) {
			logger.Info("no API key found, the report will have no AI comment", "env", cfg.AIAPIKeyEnv)
		} else {
			logger.Warn("summarizer disabled", "error", err)
		}
		return summarizer.Disabled{}
	}
	return remote
}
