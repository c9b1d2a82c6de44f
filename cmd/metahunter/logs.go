package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/metahunter/internal/report"
)

// Defaults of the logs command.
const (
	defaultLogsPath = "examples"
	defaultLogsOut  = "docs/reports"
	logsOutDirMode  = 0o750
)

// NewLogsCmd creates the logs command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Summarize JSONL event logs into JSON, CSV and Markdown reports",
		Long: `Logs aggregates the events of one or more .jsonl logs: totals per level,
status and task, duration statistics, records in and out, the time window
and the first events as examples.

Directories are searched recursively for .jsonl files. A single JSON line
is printed for CI. The command exits with status 2 when no event is found.

Examples:
  # Write every format from the logs under ./examples
  metahunter logs --all

  # Markdown only, from two specific logs
  metahunter logs --logs logs/a.jsonl --logs logs/b.jsonl --md --outdir out`,
		Args: cobra.NoArgs,
		RunE: runLogsCmd,
	}

	cmd.Flags().StringSlice("logs", []string{defaultLogsPath}, "Files or directories holding .jsonl logs")
	cmd.Flags().String("outdir", defaultLogsOut, "Output directory for the reports")
	cmd.Flags().Bool("json", false, "Write "+report.LogSummaryJSONName)
	cmd.Flags().Bool("csv", false, "Write "+report.LogSummaryCSVName)
	cmd.Flags().Bool("md", false, "Write "+report.LogSummaryMarkdownName)
	cmd.Flags().Bool("all", false, "Write every format")

	return cmd
}

// logsResult is the single line printed after a successful summary.
type logsResult struct {
	OK     bool   `json:"ok"`
	Events int    `json:"events"`
	OutDir string `json:"outdir"`
}

// runLogsCmd executes the logs command.
func runLogsCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	paths, err := flags.GetStringSlice("logs")
	if err != nil {
		return err
	}
	outDir, err := flags.GetString("outdir")
	if err != nil {
		return err
	}
	all, err := flags.GetBool("all")
	if err != nil {
		return err
	}

	records, err := report.ReadLogRecords(paths, setupLogger(cmd))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return report.ErrNoEvents
	}
	summary := report.AggregateLogs(records)

	if err := os.MkdirAll(outDir, logsOutDirMode); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputs := []struct {
		flag   string
		name   string
		render func(io.Writer, *report.LogSummary) error
	}{
		{"json", report.LogSummaryJSONName, report.WriteLogSummaryJSON},
		{"csv", report.LogSummaryCSVName, report.WriteLogSummaryCSV},
		{"md", report.LogSummaryMarkdownName, report.WriteLogSummaryMarkdown},
	}
	for _, o := range outputs {
		selected, err := flags.GetBool(o.flag)
		if err != nil {
			return err
		}
		if !all && !selected {
			continue
		}
		path := filepath.Join(outDir, o.name)
		err = report.WriteFile(path, report.ArtifactFileMode, func(w io.Writer) error {
			return o.render(w, summary)
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	line, err := json.Marshal(logsResult{OK: true, Events: summary.TotalEvents, OutDir: outDir})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(line))
	return nil
}
