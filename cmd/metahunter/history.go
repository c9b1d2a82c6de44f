package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nao1215/metahunter/internal/config"
	"github.com/nao1215/metahunter/internal/database"
	"github.com/nao1215/metahunter/internal/report"
)

// historyDirWidth is the column width of the input directory in the run list.
const historyDirWidth = 32

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `History lists the runs recorded by 'metahunter run', most recent first.

With a run ID, the stored analysis of that run is shown instead.
Integrity reports are not recorded; keep the report file to verify a batch.

Examples:
  # List every recorded run
  metahunter history

  # Show one run
  metahunter history 20250314T092653Z

  # Machine-readable output
  metahunter history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output JSON")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	out := cmd.OutOrStdout()
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		if asJSON {
			fmt.Fprintln(out, "[]")
			return nil
		}
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if len(args) == 1 {
		record, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(record)
			return err
		}
		colored, err := useColor(cmd, out)
		if err != nil {
			return err
		}
		ar := report.NewAnalysisReport(record.RunID, record.StartedAt, record.Stats(), "")
		ar.Summary = record.Summary
		_, err = report.NewSimpleWriter(out,
			report.WithVerbose(getVerboseFlag(cmd)),
			report.WithColor(colored),
		).Write(ar)
		return err
	}

	records, err := db.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON {
		if records == nil {
			records = []database.RunRecord{}
		}
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(records)
		return err
	}
	printRunList(out, records)
	return nil
}

// printRunList writes one line per run.
func printRunList(out io.Writer, records []database.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return
	}

	fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(records))
	fmt.Fprintf(out, "  %-18s  %s  %5s  %4s  %6s  %4s\n",
		"Run ID", runewidth.FillRight("Input", historyDirWidth), "Files", "High", "Medium", "Low")
	for _, r := range records {
		dir := runewidth.Truncate(r.InputDir, historyDirWidth, "...")
		fmt.Fprintf(out, "  %-18s  %s  %5d  %4d  %6d  %4d\n",
			r.RunID,
			runewidth.FillRight(dir, historyDirWidth),
			r.FileCount,
			r.Summary.RiskHigh,
			r.Summary.RiskMedium,
			r.Summary.RiskLow,
		)
	}
}
