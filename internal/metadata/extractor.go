package metadata

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/metahunter/internal/model"
)

// DefaultMaxFileSize caps how much of a file extractors read into memory.
const DefaultMaxFileSize = 64 * 1024 * 1024

// Extractor reads the metadata of one file format.
type Extractor interface {
	// Name identifies the extractor in stats and logs.
	Name() string

	// Supports reports whether the extractor handles path.
	Supports(path string) bool

	// Extract returns the metadata found in the file at path.
	Extract(ctx context.Context, path string) (*model.Metadata, error)
}

// Registry dispatches a path to the first extractor that supports it.
type Registry struct {
	extractors []Extractor
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	maxFileSize int64
	extra       []Extractor
}

// WithMaxFileSize sets the size limit of the built-in extractors.
func WithMaxFileSize(n int64) RegistryOption {
	return func(c *registryConfig) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// WithExtractor registers an additional extractor, tried after the built-in ones.
func WithExtractor(e Extractor) RegistryOption {
	return func(c *registryConfig) {
		c.extra = append(c.extra, e)
	}
}

// NewRegistry returns a Registry with every built-in extractor.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := &registryConfig{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(cfg)
	}

	extractors := []Extractor{
		NewEXIFExtractor(),
		NewPDFExtractor(cfg.maxFileSize),
		NewOOXMLExtractor(cfg.maxFileSize),
		NewHTMLExtractor(cfg.maxFileSize),
		NewPNGExtractor(cfg.maxFileSize),
	}
	return &Registry{extractors: append(extractors, cfg.extra...)}
}

// Extractors returns the registered extractors in dispatch order.
func (r *Registry) Extractors() []Extractor {
	return slices.Clone(r.extractors)
}

// Lookup returns the extractor for path, or nil.
func (r *Registry) Lookup(path string) Extractor {
	for _, e := range r.extractors {
		if e.Supports(path) {
			return e
		}
	}
	return nil
}

// Extract returns the metadata of path and the name of the extractor used.
// Unsupported formats give empty metadata and an empty name.
func (r *Registry) Extract(ctx context.Context, path string) (*model.Metadata, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	e := r.Lookup(path)
	if e == nil {
		return &model.Metadata{}, "", nil
	}

	md, err := e.Extract(ctx, path)
	if err != nil {
		return nil, e.Name(), fmt.Errorf("%s extractor: %w", e.Name(), err)
	}
	if md == nil {
		md = &model.Metadata{}
	}
	return md, e.Name(), nil
}

// hasExtension reports whether path ends in one of exts (lowercase, with dot).
func hasExtension(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(exts, ext)
}

// readLimited reads the whole file, refusing files larger than limit.
func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the scanned input set
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, path, limit)
	}
	return data, nil
}
