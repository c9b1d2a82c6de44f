package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/metahunter/internal/analysis"
	"github.com/nao1215/metahunter/internal/config"
	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/pipeline"
	"github.com/nao1215/metahunter/internal/report"
	"github.com/nao1215/metahunter/internal/runctx"
)

// Report formats of the scan command.
const (
	formatSimple   = "simple"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatHTML     = "html"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Analyze files for identifying metadata without cleaning them",
		Long: `Scan analyzes a file or a directory in place. Nothing is written next to
the scanned files and no run is recorded.

Each file is scored from 0 to 100:
- GPS coordinates (+40)
- Author or company names (+15 each)
- Office or corporate software (+15)
- Internal paths such as C:\Users or /home (+10)
- Metadata-prone file types (+5)

Examples:
  # Summary on the terminal
  metahunter scan ./photos

  # Per-file analysis as JSON
  metahunter scan --json ./photos

  # Markdown or HTML report written to a file
  metahunter scan --markdown -o report.md ./docs
  metahunter scan --html -o report.html ./docs`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output per-file analysis as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Output the Markdown analysis report")
	cmd.Flags().Bool("html", false, "Output the analysis report as an HTML page")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file (creates directories if needed)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of files analyzed concurrently")
	cmd.Flags().StringSlice("fingerprint", nil, "Extra fingerprints per file (blake2b-256, blake3)")
	cmd.Flags().BoolP("recursive", "r", false, "Walk directories recursively")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .metahunter in current or home directory)")

	return cmd
}

// scanOptions holds the parsed scan flags.
type scanOptions struct {
	target string
	format string
	output string
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateAnalysis(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	colored := false
	if opts.format == formatSimple && opts.output == "" {
		if colored, err = useColor(cmd, cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	logger := setupLogger(cmd)
	analyzer := analysis.New(
		analysis.WithWorkers(cfg.Workers),
		analysis.WithFingerprints(cfg.FingerprintAlgorithms()...),
		analysis.WithExtraAIKeywords(cfg.ExtraAIKeywords...),
		analysis.WithLogger(logger),
	)

	stats, err := scanTarget(cmd.Context(), analyzer, opts.target, cfg.Recursive)
	if err != nil {
		return err
	}

	clock := runctx.SystemClock{}
	ar := report.NewAnalysisReport(runctx.NewRunID(clock), clock.Now(), stats, "")
	render := func(w io.Writer) error {
		return renderScan(w, opts.format, ar, stats, cfg.Verbose, colored)
	}

	if opts.output == "" {
		return render(cmd.OutOrStdout())
	}
	if err := report.WriteFile(opts.output, report.ArtifactFileMode, render); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", opts.output)
	return nil
}

// buildScanConfig creates a Config and the scan options from flags.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, scanOptions, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	opts := scanOptions{target: args[0], format: formatSimple}

	var err error
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, opts, err
	}
	if cfg.Fingerprints, err = flags.GetStringSlice("fingerprint"); err != nil {
		return nil, opts, err
	}
	if cfg.Recursive, err = flags.GetBool("recursive"); err != nil {
		return nil, opts, err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return nil, opts, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	selected := 0
	for _, f := range []string{formatJSON, formatMarkdown, formatHTML} {
		on, err := flags.GetBool(f)
		if err != nil {
			return nil, opts, err
		}
		if on {
			selected++
			opts.format = f
		}
	}
	if selected > 1 {
		return nil, opts, config.ErrConflictingReportFormats
	}

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

// scanTarget analyzes target, which is either one file or a directory.
func scanTarget(ctx context.Context, a *analysis.Analyzer, target string, recursive bool) (*model.Stats, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", target, err)
	}

	paths := []string{target}
	if info.IsDir() {
		if paths, err = pipeline.CollectInputFiles(target, recursive); err != nil {
			return nil, err
		}
	}
	return a.AnalyzeFiles(ctx, paths)
}

// renderScan writes the scan result in format.
func renderScan(w io.Writer, format string, ar *report.AnalysisReport, stats *model.Stats, verbose, colored bool) error {
	var err error
	switch format {
	case formatJSON:
		_, err = report.NewJSONWriter(w, report.WithPrettyPrint()).WriteValue(stats)
	case formatMarkdown:
		_, err = report.NewMarkdownWriter(w).Write(ar)
	case formatHTML:
		_, err = report.NewHTMLWriter(w).Write(ar)
	default:
		_, err = report.NewSimpleWriter(w, report.WithVerbose(verbose), report.WithColor(colored)).Write(ar)
	}
	return err
}
