// Package report renders metahunter results.
//
// It contains writers for the per-run artifacts:
//   - JSONWriter: stats, AI summary and integrity report files
//   - MarkdownWriter: the advanced analysis report, optionally as HTML
//   - SimpleWriter: a human-readable summary for the terminal
//
// It also aggregates JSONL event logs into a LogSummary that can be
// written as JSON, CSV or Markdown.
//
// Design decision: report data (AnalysisReport, LogSummary) is assembled
// once and handed to any writer, so adding an output format never touches
// the pipeline.
package report
