package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/metahunter/internal/report"
)

// Exit codes.
const (
	exitError    = 1
	exitNoEvents = 2
)

// NewRootCmd creates the root command for MetaHunter.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metahunter",
		Short: "Metadata scanner, cleaner and risk analyzer",
		Long: `MetaHunter finds identifying metadata in documents and images.

It writes cleaned copies of every input file, scores each file by privacy
risk (GPS coordinates, authors, organizations, internal paths) and can
commit the cleaned batch to a SHA-256 Merkle root for later verification.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("color", colorAuto, "Colorize terminal output (auto|on|off)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewLogsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, report.ErrNoEvents) {
		return exitNoEvents
	}
	return exitError
}
