package analysis

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/metahunter/internal/model"
)

// DefaultAIKeywords are strings typically left in metadata by image and
// document generators.
var DefaultAIKeywords = []string{
	"midjourney",
	"stable diffusion",
	"stablediffusion",
	"dall-e",
	"dalle",
	"openai",
	"firefly",
	"adobe firefly",
	"canva",
	"ai generated",
	"generated with ai",
	"artificial intelligence",
	"leonardo.ai",
}

// AIDetector flags files whose metadata mentions a known AI generator.
type AIDetector struct {
	keywords []string
}

// NewAIDetector returns a detector using DefaultAIKeywords plus extra.
// Extra keywords are lowercased; blanks and duplicates are ignored.
func NewAIDetector(extra ...string) *AIDetector {
	keywords := slices.Clone(DefaultAIKeywords)
	for _, k := range extra {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && !slices.Contains(keywords, k) {
			keywords = append(keywords, k)
		}
	}
	return &AIDetector{keywords: keywords}
}

// Keywords returns the keywords in match order.
func (d *AIDetector) Keywords() []string {
	return slices.Clone(d.keywords)
}

// Detect searches every key and value describing a, lowercased and joined,
// for the detector's keywords. Each matching keyword is one evidence line.
func (d *AIDetector) Detect(a *model.FileAnalysis) (bool, []string) {
	haystack := searchText(a)
	evidence := make([]string, 0)
	for _, k := range d.keywords {
		if strings.Contains(haystack, k) {
			evidence = append(evidence, fmt.Sprintf("Match for '%s' in metadata.", k))
		}
	}
	return len(evidence) > 0, evidence
}

// searchText flattens the technical fields and metadata of a into one
// lowercase string of keys and values.
func searchText(a *model.FileAnalysis) string {
	parts := []string{
		"path", a.Path,
		"name", a.Name,
		"extension", a.Extension,
		"mime_type", a.MimeType,
		"size_bytes", strconv.FormatInt(a.SizeBytes, 10),
		"sha256", a.SHA256,
	}
	if a.Metadata != nil {
		for _, f := range a.Metadata.Fields() {
			parts = append(parts, f.Key, f.Value)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}
