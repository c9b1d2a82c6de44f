package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/nao1215/metahunter/internal/integrity"
	"github.com/nao1215/metahunter/internal/model"
)

// JSONWriter outputs reports and artifacts in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: HTML escaping is disabled so paths and metadata values
// such as "<unknown>" or "R&D" stay readable, and non-ASCII text is
// written as UTF-8 rather than \u escapes.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the analysis report in JSON format.
func (w *JSONWriter) Write(report *AnalysisReport) (int, error) {
	return w.WriteValue(report)
}

// WriteValue marshals v and writes it followed by a newline.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// WriteStatsFile writes the per-file analysis artifact to path.
func WriteStatsFile(path string, stats *model.Stats) error {
	return writeJSONFile(path, ArtifactFileMode, stats)
}

// WriteSummaryFile writes the risk summary artifact to path.
func WriteSummaryFile(path string, summary model.RiskSummary) error {
	return writeJSONFile(path, ArtifactFileMode, summary)
}

// WriteIntegrityFile writes the integrity report to path, readable by the
// owner only.
func WriteIntegrityFile(path string, report *integrity.IntegrityReport) error {
	return writeJSONFile(path, IntegrityFileMode, report)
}

func writeJSONFile(path string, perm os.FileMode, v any) error {
	return WriteFile(path, perm, func(out io.Writer) error {
		_, err := NewJSONWriter(out, WithPrettyPrint()).WriteValue(v)
		return err
	})
}
