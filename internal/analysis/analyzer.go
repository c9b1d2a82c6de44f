package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/metahunter/internal/digest"
	"github.com/nao1215/metahunter/internal/metadata"
	"github.com/nao1215/metahunter/internal/model"
)

// DefaultWorkers is the number of files analyzed at once.
const DefaultWorkers = 4

// Analyzer builds FileAnalysis records for files on disk.
// It is safe for concurrent use.
type Analyzer struct {
	registry     *metadata.Registry
	detector     *AIDetector
	fingerprints []digest.Algorithm
	workers      int
	logger       *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWorkers sets how many files AnalyzeFiles processes concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithFingerprints adds extra digests to every analysis.
func WithFingerprints(algs ...digest.Algorithm) Option {
	return func(a *Analyzer) {
		a.fingerprints = append(a.fingerprints, algs...)
	}
}

// WithRegistry replaces the metadata extractor registry.
func WithRegistry(r *metadata.Registry) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithExtraAIKeywords extends the AI generation keyword list.
func WithExtraAIKeywords(keywords ...string) Option {
	return func(a *Analyzer) {
		a.detector = NewAIDetector(keywords...)
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: metadata.NewRegistry(),
		detector: NewAIDetector(),
		workers:  DefaultWorkers,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile analyzes one regular file.
//
// Extraction failures do not fail the analysis: they are recorded in
// MetadataError and the file is scored without metadata. Failing to read
// the file for hashing is an error.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*model.FileAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	sums, err := digest.FileWithFingerprints(path, a.fingerprints)
	if err != nil {
		return nil, err
	}

	fa := &model.FileAnalysis{
		Path:      path,
		Name:      filepath.Base(path),
		Extension: strings.ToLower(filepath.Ext(path)),
		MimeType:  DetectMIMEType(path),
		SizeBytes: info.Size(),
		SHA256:    sums.SHA256,
	}
	if len(sums.Fingerprints) > 0 {
		fa.Fingerprints = make(map[string]string, len(sums.Fingerprints))
		for alg, sum := range sums.Fingerprints {
			fa.Fingerprints[string(alg)] = sum
		}
	}

	md, extractor, err := a.registry.Extract(ctx, path)
	fa.Extractor = extractor
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("metadata extraction failed", "path", path, "error", err)
		fa.MetadataError = err.Error()
	} else if !md.IsEmpty() {
		fa.Metadata = md
	}

	a.Advance(fa)
	return fa, nil
}

// Advance fills fa.Advanced from the rest of fa.
func (a *Analyzer) Advance(fa *model.FileAnalysis) {
	score, level, reasons := ComputeRisk(fa)
	aiGenerated, evidence := a.detector.Detect(fa)
	fa.Advanced = model.AdvancedAnalysis{
		RiskScore:        score,
		RiskLevel:        level,
		RiskReasons:      reasons,
		ForensicTimeline: BuildTimeline(fa.Metadata),
		AIGenerated:      aiGenerated,
		AIEvidence:       evidence,
	}
}

// AnalyzeFiles analyzes paths concurrently and returns the results keyed
// by path in input order. Paths that are not regular files are skipped.
//
// Design decision: results go into a slice indexed by input position, so
// worker scheduling never changes the order of the returned Stats, which
// the integrity report later commits to.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) (*model.Stats, error) {
	a.logger.Debug("starting analysis", "files", len(paths), "workers", a.workers)
	start := time.Now()

	results := make([]*model.FileAnalysis, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				a.logger.Debug("skipping non-regular path", "path", path)
				return nil
			}

			fa, err := a.AnalyzeFile(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to analyze %s: %w", path, err)
			}
			results[i] = fa
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := model.NewStats(results...)
	a.logger.Debug("analysis complete", "files", stats.Len(), "elapsed", time.Since(start))
	return stats, nil
}
