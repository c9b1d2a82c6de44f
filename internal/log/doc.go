// Package log provides the two loggers of metahunter, both built on slog.
//
// NewSecureLogger is the terminal logger. NewEventLogger writes the run
// event log, one JSON object per line, which `metahunter logs` later
// aggregates.
//
// # Masking
//
// Both loggers pass attributes through SecureHandler. It masks:
//   - credentials for the summarizer endpoint (API keys, bearer tokens)
//   - identifying document metadata (author, company, GPS coordinates)
//   - values shaped like tokens (JWTs, sk- keys, long opaque strings)
//
// Hex digests of 256 bits or more are never masked, since content hashes
// and Merkle roots are the audit record of a run.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("metadata extraction failed", "path", p, "error", err)
//
//	f, _ := log.OpenEventFile("logs/metahunter.jsonl")
//	events := log.NewEventLogger(f, runID)
//	events.Info(ctx, "cli", "run_started", slog.String("input_dir", in))
package log
