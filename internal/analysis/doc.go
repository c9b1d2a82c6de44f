// Package analysis turns files into FileAnalysis records: technical facts
// (size, type, digests), extracted metadata, and the advanced analysis made
// of a risk score, a forensic timeline and an AI generation heuristic.
//
// The scoring rules are intentionally simple and additive so that every
// point of a score can be traced to one reason string.
package analysis
