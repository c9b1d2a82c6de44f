package report

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// Log summary file names inside the output directory.
const (
	LogSummaryJSONName     = "summary.json"
	LogSummaryCSVName      = "summary.csv"
	LogSummaryMarkdownName = "summary.md"
)

// WriteLogSummaryJSON writes s as indented JSON.
func WriteLogSummaryJSON(w io.Writer, s *LogSummary) error {
	_, err := NewJSONWriter(w, WithPrettyPrint()).WriteValue(s)
	return err
}

// WriteLogSummaryCSV writes s as a flat metric,value table. Counter maps
// are embedded as JSON; missing statistics are empty cells.
func WriteLogSummaryCSV(w io.Writer, s *LogSummary) error {
	rows := [][]string{
		{"metric", "value"},
		{"total_events", strconv.Itoa(s.TotalEvents)},
		{"levels", compactJSON(s.Levels)},
		{"status", compactJSON(s.Status)},
		{"tasks", compactJSON(s.Tasks)},
		{"duration_ms.min", formatOptionalFloat(s.DurationMS.Min)},
		{"duration_ms.avg", formatOptionalFloat(s.DurationMS.Avg)},
		{"duration_ms.max", formatOptionalFloat(s.DurationMS.Max)},
		{"duration_ms.sum", formatOptionalFloat(s.DurationMS.Sum)},
		{"records.in", strconv.FormatInt(s.Records.In, 10)},
		{"records.out", strconv.FormatInt(s.Records.Out, 10)},
		{"window.start", derefString(s.Window.Start)},
		{"window.end", derefString(s.Window.End)},
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv summary: %w", err)
	}
	return nil
}

// WriteLogSummaryMarkdown writes s as a Markdown execution report.
func WriteLogSummaryMarkdown(w io.Writer, s *LogSummary) error {
	md := markdown.NewMarkdown(w)

	md.H1("MetaHunter execution report")
	md.PlainText("")
	md.PlainText("This report summarizes run logs in **JSON Lines (.jsonl)** format.")
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	d := s.DurationMS
	md.BulletList(
		fmt.Sprintf("**Total events:** %d", s.TotalEvents),
		fmt.Sprintf("**Duration (ms):** min=%s, avg=%s, max=%s, sum=%s",
			floatOrNA(d.Min), floatOrNA(d.Avg),
			floatOrNA(d.Max), floatOrNA(d.Sum)),
		fmt.Sprintf("**Records:** in=%d, out=%d", s.Records.In, s.Records.Out),
		fmt.Sprintf("**Time window:** %s → %s",
			stringOrNA(s.Window.Start), stringOrNA(s.Window.End)),
	)
	md.PlainText("")

	if len(s.Levels) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Events by level"),
			piechart.WithShowData(true),
		)
		for _, k := range sortedByCount(s.Levels) {
			if n, err := safecast.Conv[uint64](s.Levels[k]); err == nil {
				chart.LabelAndIntValue(k, n)
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	counterTable(md, "Levels (level)", s.Levels)
	counterTable(md, "Status (status)", s.Status)
	counterTable(md, "Tasks (task)", s.Tasks)

	if len(s.Examples) > 0 {
		md.H3("Sample events")
		md.PlainText("")
		rows := make([][]string, 0, len(s.Examples))
		for _, e := range s.Examples {
			rows = append(rows, []string{
				filepath.Base(e.SourceFile),
				displayValue(e.Timestamp),
				e.Task,
				e.Status,
				e.Level,
				strings.ReplaceAll(displayValue(e.Message), "|", "/"),
				optionalCell(e.RecordsIn),
				optionalCell(e.RecordsOut),
				optionalCell(e.DurationMS),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"file", "timestamp", "task", "status", "level", "msg", "in", "out", "dur"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return md.Build()
}

// counterTable writes counts sorted by descending count, then key.
func counterTable(md *markdown.Markdown, title string, counts map[string]int) {
	md.H3(title)
	md.PlainText("")
	if len(counts) == 0 {
		md.PlainText("(No data)")
		md.PlainText("")
		return
	}

	keys := sortedByCount(counts)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{escapeCell(k), strconv.Itoa(counts[k])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"key", "count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func sortedByCount(counts map[string]int) []string {
	return slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func floatOrNA(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return formatFloat(*f)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringOrNA(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}

// displayValue renders a raw event value, null as "n/a".
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "n/a"
	case string:
		return x
	case float64:
		return formatFloat(x)
	default:
		return compactJSON(x)
	}
}

// optionalCell renders a raw event value, empty for missing or zero values.
func optionalCell(v any) string {
	if isEmptyValue(v) {
		return ""
	}
	return displayValue(v)
}
