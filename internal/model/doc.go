// Package model defines the data shared by the metahunter packages.
//
// The main types are:
//   - Metadata: normalized metadata extracted from one file
//   - FileAnalysis: technical facts, risk and timeline of one file
//   - Stats: the ordered per-path analyses of a run
//   - RiskSummary: batch level aggregation of Stats
//   - Run: the state a pipeline run accumulates step by step
//
// Design decision: the models live in their own package because the
// extractors, the analyzer, the reports and the pipeline all need them,
// and a shared leaf package avoids import cycles.
package model
