// Package summarizer aggregates a run's per-file analysis into a
// RiskSummary and optionally asks a chat-completions model for a short
// commentary on it.
//
// The remote model is strictly optional. Every failure to reach it yields
// an error the caller is expected to log and ignore; the rest of the run
// never depends on it.
package summarizer
