package report

import (
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/metahunter/internal/model"
)

// NoExtensionLabel is shown for files without an extension.
const NoExtensionLabel = "(no extension)"

// MarkdownWriter outputs the advanced analysis report in Markdown.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which gives type-safe tables, mermaid charts and
// GitHub-flavored alerts without string templates.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *AnalysisReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeExtensions(md, report)
	w.writeTopFiles(md, report)
	w.writeLegend(md)
	w.writeComment(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *AnalysisReport) {
	md.H1("MetaHunter - Advanced analysis report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated at", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
			{"Run ID", "`" + report.RunID + "`"},
		},
	})
	md.PlainText("")
}

// writeSummary writes the risk counts, a pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *AnalysisReport) {
	s := report.Summary

	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Files"},
		Rows: [][]string{
			{"🔴 HIGH risk", strconv.Itoa(s.RiskHigh)},
			{"🟠 MEDIUM risk", strconv.Itoa(s.RiskMedium)},
			{"🔵 LOW risk", strconv.Itoa(s.RiskLow)},
			{"🤖 Possibly AI generated", strconv.Itoa(s.AIGeneratedCount)},
			{"**Total analyzed**", "**" + strconv.Itoa(s.TotalFiles) + "**"},
		},
	})
	md.PlainText("")

	if s.TotalFiles > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of the risk levels.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.RiskSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Risk level distribution"),
		piechart.WithShowData(true),
	)

	for _, level := range []model.RiskLevel{model.RiskHigh, model.RiskMedium, model.RiskLow} {
		n, err := safecast.Conv[uint64](s.CountFor(level))
		if err != nil || n == 0 {
			continue
		}
		chart.LabelAndIntValue(level.String(), n)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the worst level found.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.RiskSummary) {
	switch {
	case s.RiskHigh > 0:
		md.Cautionf("%d file(s) still expose strong identifying metadata.", s.RiskHigh)
	case s.RiskMedium > 0:
		md.Warningf("%d file(s) expose some sensitive metadata.", s.RiskMedium)
	case s.TotalFiles > 0:
		md.Tip("No file reached MEDIUM or HIGH risk.")
	default:
		md.Note("No files were analyzed.")
	}
	md.PlainText("")
}

// writeExtensions writes the file count per extension, sorted by extension.
func (w *MarkdownWriter) writeExtensions(md *markdown.Markdown, report *AnalysisReport) {
	md.H2("Distribution by file type")
	md.PlainText("")

	byExt := report.Summary.ByExtension
	if len(byExt) == 0 {
		md.PlainText("No data.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(byExt))
	for _, ext := range slices.Sorted(maps.Keys(byExt)) {
		label := ext
		if label == "" {
			label = NoExtensionLabel
		}
		rows = append(rows, []string{label, strconv.Itoa(byExt[ext])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Extension", "Files"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeTopFiles writes the riskiest files.
func (w *MarkdownWriter) writeTopFiles(md *markdown.Markdown, report *AnalysisReport) {
	md.H2("Files with the highest risk")
	md.PlainText("")

	if len(report.TopFiles) == 0 {
		md.PlainText("No files analyzed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.TopFiles))
	for _, f := range report.TopFiles {
		rows = append(rows, []string{
			"`" + escapeCell(f.Path) + "`",
			strconv.Itoa(f.Score),
			f.Level.String(),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Risk score", "Level"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLegend explains the risk levels.
func (w *MarkdownWriter) writeLegend(md *markdown.Markdown) {
	md.H2("Risk interpretation")
	md.PlainText("")
	md.BulletList(
		"**HIGH**: strong identifying metadata (GPS plus author or company, internal paths).",
		"**MEDIUM**: some sensitive metadata, worth reviewing before sharing.",
		"**LOW**: minimal or harmless metadata.",
	)
	md.PlainText("")
	md.PlainText("Review HIGH and MEDIUM files and clean their metadata before publishing them.")
	md.PlainText("")
}

// writeComment appends the AI commentary when there is one.
func (w *MarkdownWriter) writeComment(md *markdown.Markdown, report *AnalysisReport) {
	comment := strings.TrimSpace(report.AIComment)
	if comment == "" {
		return
	}
	md.HorizontalRule()
	md.PlainText("")
	md.H2("AI-generated comment")
	md.PlainText("")
	md.PlainText(comment)
}

// escapeCell keeps a value from breaking the table layout.
func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ", "`", "'").Replace(s)
}
