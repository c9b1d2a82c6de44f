package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/metahunter/internal/config"
)

//go:embed templates/metahunter.yaml
var configTemplate []byte

// errConfigExists is returned when init would overwrite a file without --force.
var errConfigExists = errors.New("configuration file already exists")

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a MetaHunter configuration file",
		Long: `Init writes a commented .metahunter configuration file.

The generated file documents every setting: worker count, extra
fingerprints, the AI summarizer endpoint and the run history database.

Examples:
  # Create .metahunter in the current directory
  metahunter init

  # Create the file at a specific path
  metahunter init -o configs/metahunter.yaml

  # Overwrite an existing file
  metahunter init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("%w: %s (use -f to overwrite)", errConfigExists, outputPath)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, configTemplate, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - Worker count and extra fingerprints")
	fmt.Fprintln(out, "  - The AI summarizer endpoint and model")
	fmt.Fprintln(out, "  - Run history recording")

	return nil
}
