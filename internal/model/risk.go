package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel classifies how much identifying metadata a file still exposes.
//
// Design decision: iota constants keep comparisons and sorting cheap; the
// JSON form is the upper-case name so stats files stay readable.
type RiskLevel int

const (
	// RiskLow means minimal or harmless metadata.
	RiskLow RiskLevel = iota
	// RiskMedium means some sensitive metadata without the high impact combination.
	RiskMedium
	// RiskHigh means strong identifying metadata such as GPS plus an author.
	RiskHigh
)

// Score thresholds for risk levels. Scores are clamped to MaxRiskScore.
const (
	MediumRiskThreshold = 40
	HighRiskThreshold   = 70
	MaxRiskScore        = 100
)

// String returns LOW, MEDIUM or HIGH.
func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// RiskLevelForScore maps a 0-100 score to its level.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ParseRiskLevel parses a level name, case-insensitively.
// The Spanish names written by older versions of the tool are accepted too.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW", "BAJO":
		return RiskLow, nil
	case "MEDIUM", "MEDIO":
		return RiskMedium, nil
	case "HIGH", "ALTO":
		return RiskHigh, nil
	default:
		return RiskLow, fmt.Errorf("unknown risk level %q", s)
	}
}

// MarshalJSON encodes the level as its name.
func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name.
func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Risk factor identifiers.
const (
	FactorGPS            = "gps_coordinates"
	FactorAuthor         = "author"
	FactorCompany        = "company"
	FactorOfficeSoftware = "office_software"
	FactorInternalPath   = "internal_path"
	FactorMetadataFormat = "metadata_prone_format"
)

// RiskFactor describes one contribution to a file's risk score.
type RiskFactor struct {
	// Weight is added to the score when the factor applies.
	Weight int
	// Reason is the human readable explanation. It may contain one %s verb
	// for the offending value.
	Reason string
	// Recommendation tells the user how to get rid of the factor.
	Recommendation string
}

// riskFactorMapping is the single source of truth for factor weights.
var riskFactorMapping = map[string]RiskFactor{
	FactorGPS: {
		Weight:         40,
		Reason:         "Contains GPS coordinates in metadata (possible location leak).",
		Recommendation: "Strip EXIF GPS tags before sharing images.",
	},
	FactorAuthor: {
		Weight:         15,
		Reason:         "Metadata names the author: '%s'.",
		Recommendation: "Clear the author field in document properties.",
	},
	FactorCompany: {
		Weight:         15,
		Reason:         "Metadata includes an organization or company: '%s'.",
		Recommendation: "Clear the company field in document properties.",
	},
	FactorOfficeSoftware: {
		Weight:         15,
		Reason:         "Metadata shows office or corporate software (Microsoft/Adobe/etc.).",
		Recommendation: "Export through a tool that does not record the producer.",
	},
	FactorInternalPath: {
		Weight:         10,
		Reason:         "File path suggests an internal user or machine layout.",
		Recommendation: "Move files out of user profile directories before publishing.",
	},
	FactorMetadataFormat: {
		Weight:         5,
		Reason:         "Format prone to carrying sensitive metadata (PDF/Word/image).",
		Recommendation: "Run the cleaner on every file of this type.",
	},
}

// GetRiskFactor returns the factor registered under id.
func GetRiskFactor(id string) (RiskFactor, bool) {
	f, ok := riskFactorMapping[id]
	return f, ok
}

// RiskFactorIDs returns every known factor id, heaviest first.
func RiskFactorIDs() []string {
	return []string{
		FactorGPS, FactorAuthor, FactorCompany,
		FactorOfficeSoftware, FactorInternalPath, FactorMetadataFormat,
	}
}
