package analysis

import (
	"fmt"
	"strings"

	"github.com/nao1215/metahunter/internal/model"
)

// Author values that do not identify anyone.
var placeholderAuthors = []string{"desconocido", "unknown", "system"}

// Substrings of creator tool or software names that point at office or
// corporate tooling.
var officeSoftwareTerms = []string{"microsoft", "office", "adobe", "acrobat", "corp", "corporate"}

// Substrings of a lowercased path that reveal a user or company layout.
var internalPathParts = []string{`\users\`, "/home/", "desktop", "documentos", "empresa", "corporativo"}

// Substrings of MIME types that usually carry rich metadata.
var metadataProneMIMEs = []string{"pdf", "word", "officedocument", "image/jpeg", "image/png"}

// ComputeRisk scores a file from 0 to 100 and explains each contribution.
// The score is clamped at model.MaxRiskScore.
func ComputeRisk(a *model.FileAnalysis) (int, model.RiskLevel, []string) {
	score := 0
	reasons := make([]string, 0)
	add := func(id string, args ...any) {
		f, ok := model.GetRiskFactor(id)
		if !ok {
			return
		}
		score += f.Weight
		if len(args) > 0 {
			reasons = append(reasons, fmt.Sprintf(f.Reason, args...))
			return
		}
		reasons = append(reasons, f.Reason)
	}

	md := a.Metadata
	if md.HasGPS() {
		add(model.FactorGPS)
	}

	if md != nil {
		if author := strings.TrimSpace(md.Author); author != "" && !isPlaceholderAuthor(author) {
			add(model.FactorAuthor, author)
		}
		if company := strings.TrimSpace(md.Company); company != "" {
			add(model.FactorCompany, company)
		}
		tools := strings.ToLower(md.CreatorTool + " " + md.Software)
		if containsAny(tools, officeSoftwareTerms) {
			add(model.FactorOfficeSoftware)
		}
	}

	if containsAny(strings.ToLower(a.Path), internalPathParts) {
		add(model.FactorInternalPath)
	}
	if containsAny(strings.ToLower(a.MimeType), metadataProneMIMEs) {
		add(model.FactorMetadataFormat)
	}

	score = min(score, model.MaxRiskScore)
	return score, model.RiskLevelForScore(score), reasons
}

func isPlaceholderAuthor(author string) bool {
	lower := strings.ToLower(author)
	for _, p := range placeholderAuthors {
		if lower == p {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
