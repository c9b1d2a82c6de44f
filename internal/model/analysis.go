package model

// FileAnalysis is the technical and advanced analysis of one file.
// It is what the stats artifact stores per path.
type FileAnalysis struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`

	// Fingerprints holds extra digests keyed by algorithm name.
	Fingerprints map[string]string `json:"fingerprints,omitempty"`

	// Metadata is what the extractors found. Nil for unsupported formats.
	Metadata *Metadata `json:"metadata,omitempty"`

	// Extractor names the extractor that produced Metadata.
	Extractor string `json:"extractor,omitempty"`

	// MetadataError is set when the extractor failed. The file is still
	// scored on its path and type.
	MetadataError string `json:"metadata_error,omitempty"`

	// Advanced holds risk, timeline and AI heuristic results.
	Advanced AdvancedAnalysis `json:"advanced"`
}

// AdvancedAnalysis is the combined risk classification, forensic timeline
// and AI generation heuristic for one file.
type AdvancedAnalysis struct {
	RiskScore        int       `json:"risk_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	RiskReasons      []string  `json:"risk_reasons"`
	ForensicTimeline []string  `json:"forensic_timeline"`
	AIGenerated      bool      `json:"ai_generated"`
	AIEvidence       []string  `json:"ai_evidence"`
}

// RiskyFile is one row of a top-risk listing.
type RiskyFile struct {
	Path  string    `json:"path"`
	Score int       `json:"risk_score"`
	Level RiskLevel `json:"risk_level"`
}

// RiskSummary aggregates the analysis of a batch.
type RiskSummary struct {
	TotalFiles       int            `json:"total_files"`
	RiskLow          int            `json:"risk_low"`
	RiskMedium       int            `json:"risk_medium"`
	RiskHigh         int            `json:"risk_high"`
	AIGeneratedCount int            `json:"ai_generated_count"`
	ByExtension      map[string]int `json:"by_extension"`
}

// CountFor returns the number of files at level.
func (s RiskSummary) CountFor(level RiskLevel) int {
	switch level {
	case RiskHigh:
		return s.RiskHigh
	case RiskMedium:
		return s.RiskMedium
	default:
		return s.RiskLow
	}
}
