package summarizer

import (
	"slices"
	"strings"

	"github.com/nao1215/metahunter/internal/model"
)

// DefaultTopFiles is how many files the report lists as most risky.
const DefaultTopFiles = 5

// Summarize counts the files of stats per risk level and extension.
// Extensions are lowercased; files without one count under "".
func Summarize(stats *model.Stats) model.RiskSummary {
	summary := model.RiskSummary{ByExtension: make(map[string]int)}
	for _, fa := range stats.All() {
		summary.TotalFiles++
		summary.ByExtension[strings.ToLower(fa.Extension)]++

		switch fa.Advanced.RiskLevel {
		case model.RiskHigh:
			summary.RiskHigh++
		case model.RiskMedium:
			summary.RiskMedium++
		default:
			summary.RiskLow++
		}
		if fa.Advanced.AIGenerated {
			summary.AIGeneratedCount++
		}
	}
	return summary
}

// TopRiskyFiles returns up to n files ordered by descending score.
// Files with equal scores keep their order in stats.
func TopRiskyFiles(stats *model.Stats, n int) []model.RiskyFile {
	all := stats.All()
	files := make([]model.RiskyFile, 0, len(all))
	for _, fa := range all {
		files = append(files, model.RiskyFile{
			Path:  fa.Path,
			Score: fa.Advanced.RiskScore,
			Level: fa.Advanced.RiskLevel,
		})
	}
	slices.SortStableFunc(files, func(a, b model.RiskyFile) int {
		return b.Score - a.Score
	})
	if n >= 0 && len(files) > n {
		files = files[:n]
	}
	return files
}
