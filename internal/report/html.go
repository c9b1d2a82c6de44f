package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownRenderer is built once; goldmark keeps per-call state in
// Convert, so the instance is safe to share.
var (
	markdownRenderer     goldmark.Markdown
	markdownRendererOnce sync.Once
)

func getMarkdownRenderer() goldmark.Markdown {
	markdownRendererOnce.Do(func() {
		markdownRenderer = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownRenderer
}

// RenderHTML converts GitHub-flavored Markdown to an HTML fragment.
// Raw HTML in the source is omitted.
func RenderHTML(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := getMarkdownRenderer().Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// HTMLWriter outputs the advanced analysis report as a standalone HTML page.
// The page body is the Markdown report rendered by RenderHTML.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report as an HTML document.
func (w *HTMLWriter) Write(report *AnalysisReport) (int, error) {
	var md bytes.Buffer
	if _, err := NewMarkdownWriter(&md).Write(report); err != nil {
		return 0, err
	}

	body, err := RenderHTML(md.Bytes())
	if err != nil {
		return 0, err
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>MetaHunter report %s</title>\n", html.EscapeString(report.RunID))
	page.WriteString("</head>\n<body>\n")
	page.Write(body)
	page.WriteString("</body>\n</html>\n")

	return w.output.Write(page.Bytes())
}
