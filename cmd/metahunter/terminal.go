package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nao1215/metahunter/internal/log"
)

// Values of the --color flag.
const (
	colorAuto = "auto"
	colorOn   = "on"
	colorOff  = "off"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// useColor decides whether output written to w is colorized.
// In auto mode colors are used only on a terminal and when NO_COLOR is unset.
func useColor(cmd *cobra.Command, w io.Writer) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		mode = colorAuto
	}

	switch mode {
	case colorOn:
		return true, nil
	case colorOff:
		return false, nil
	case colorAuto:
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := w.(*os.File)
		return ok && isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (use auto, on or off)", mode)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// setupLogger creates the terminal logger. Sensitive attribute values
// such as author names and API keys are masked.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	return log.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
}
