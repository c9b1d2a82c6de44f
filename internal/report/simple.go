package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/nao1215/metahunter/internal/model"
)

// Column widths of the terminal summary.
const (
	rulerWidth = 70
	pathWidth  = 48
)

// SimpleWriter outputs a human-readable summary for the terminal.
//
// Design decision: colors are off unless WithColor(true) is passed. The
// caller decides based on whether the output is a terminal, so piping to
// a file never embeds escape codes.
type SimpleWriter struct {
	baseWriter

	// verbose adds the artifact list.
	verbose bool

	high   *color.Color
	medium *color.Color
	low    *color.Color
	title  *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables or disables ANSI colors.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.high, w.medium, w.low, w.title} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		high:       color.New(color.FgRed, color.Bold),
		medium:     color.New(color.FgYellow),
		low:        color.New(color.FgBlue),
		title:      color.New(color.Bold),
	}
	WithColor(false)(w)

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *AnalysisReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeTopFiles(&sb, report)
	if w.verbose {
		w.writeArtifacts(&sb, report)
	}
	w.writeComment(&sb, report)
	sb.WriteString(strings.Repeat("=", rulerWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the banner and run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *AnalysisReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", rulerWidth))
	sb.WriteString("\n")
	sb.WriteString(w.title.Sprint("                        METAHUNTER ANALYSIS"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", rulerWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:        %s\n", report.RunID)
	fmt.Fprintf(sb, "Generated at:  %s\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	sb.WriteString("\n")
}

// writeSummary writes the risk counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *AnalysisReport) {
	s := report.Summary
	w.section(sb, "RISK SUMMARY")

	fmt.Fprintf(sb, "  %s  %d\n", w.levelLabel(model.RiskHigh, "HIGH:  "), s.RiskHigh)
	fmt.Fprintf(sb, "  %s  %d\n", w.levelLabel(model.RiskMedium, "MEDIUM:"), s.RiskMedium)
	fmt.Fprintf(sb, "  %s  %d\n", w.levelLabel(model.RiskLow, "LOW:   "), s.RiskLow)
	fmt.Fprintf(sb, "  AI:      %d\n", s.AIGeneratedCount)
	fmt.Fprintf(sb, "  Total:   %d\n", s.TotalFiles)
	sb.WriteString("\n")
}

// writeTopFiles writes the riskiest files with aligned columns.
func (w *SimpleWriter) writeTopFiles(sb *strings.Builder, report *AnalysisReport) {
	if len(report.TopFiles) == 0 {
		return
	}
	w.section(sb, "TOP RISKY FILES")

	for _, f := range report.TopFiles {
		path := runewidth.FillRight(truncate(f.Path, pathWidth), pathWidth)
		fmt.Fprintf(sb, "  %s %5d  %s\n", path, f.Score, w.levelLabel(f.Level, f.Level.String()))
	}
	sb.WriteString("\n")
}

// writeArtifacts lists the files the run produced.
func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, report *AnalysisReport) {
	if len(report.Artifacts) == 0 {
		return
	}
	w.section(sb, "ARTIFACTS")

	for _, kind := range slices.Sorted(maps.Keys(report.Artifacts)) {
		fmt.Fprintf(sb, "  %-18s %s\n", kind, report.Artifacts[kind])
	}
	sb.WriteString("\n")
}

// writeComment writes the AI commentary when present.
func (w *SimpleWriter) writeComment(sb *strings.Builder, report *AnalysisReport) {
	comment := strings.TrimSpace(report.AIComment)
	if comment == "" {
		return
	}
	w.section(sb, "AI COMMENT")
	for line := range strings.SplitSeq(comment, "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(w.title.Sprint(title))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", rulerWidth))
	sb.WriteString("\n")
}

func (w *SimpleWriter) levelLabel(level model.RiskLevel, label string) string {
	switch level {
	case model.RiskHigh:
		return w.high.Sprint(label)
	case model.RiskMedium:
		return w.medium.Sprint(label)
	default:
		return w.low.Sprint(label)
	}
}

// truncate shortens value to width display columns, keeping the tail of
// long paths since file names are more telling than their directories.
func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	runes := []rune(value)
	for i := range runes {
		tail := string(runes[i:])
		if runewidth.StringWidth(tail) <= width-3 {
			return "..." + tail
		}
	}
	return "..."
}
