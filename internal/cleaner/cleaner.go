package cleaner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/metahunter/internal/metadata"
)

// Result describes one cleaned file.
type Result struct {
	// Format is the stripper that handled the file, or "copy".
	Format string

	// Removed names the metadata entries that were dropped or blanked.
	Removed []string
}

// FormatCopy is the Result format of files copied unchanged.
const FormatCopy = "copy"

// stripper rewrites the metadata-free form of data.
type stripper struct {
	format   string
	supports func(path string) bool
	strip    func(data []byte) ([]byte, []string, error)
}

// Cleaner writes metadata-free copies of files.
type Cleaner struct {
	strippers   []stripper
	dryRun      bool
	strict      bool
	maxFileSize int64
	logger      *slog.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithDryRun makes Clean copy files without stripping anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Cleaner) {
		c.dryRun = dryRun
	}
}

// WithStrict makes Clean fail with ErrUnsupportedFormat instead of
// copying files it cannot strip.
func WithStrict(strict bool) Option {
	return func(c *Cleaner) {
		c.strict = strict
	}
}

// WithMaxFileSize sets the largest file that is read for stripping.
func WithMaxFileSize(n int64) Option {
	return func(c *Cleaner) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Cleaner with every built-in stripper.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{
		strippers: []stripper{
			{format: "pdf", supports: hasExt(".pdf"), strip: StripPDF},
			{format: "jpeg", supports: hasExt(".jpg", ".jpeg", ".jpe"), strip: StripJPEG},
			{format: "png", supports: hasExt(".png"), strip: StripPNG},
			{format: "ooxml", supports: metadata.IsOOXML, strip: StripOOXML},
			{format: "html", supports: hasExt(".html", ".htm", ".xhtml"), strip: StripHTML},
		},
		maxFileSize: metadata.DefaultMaxFileSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean writes a cleaned copy of in to out with a default Cleaner.
func Clean(ctx context.Context, in, out string) error {
	_, err := New().Clean(ctx, in, out)
	return err
}

// Clean writes a cleaned copy of in to out, creating out's directory.
// The output is written to a temporary file and renamed into place, so
// a failed clean never leaves a partial file behind.
func (c *Cleaner) Clean(ctx context.Context, in, out string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if same, err := samePath(in, out); err != nil {
		return nil, err
	} else if same {
		return nil, fmt.Errorf("%w: %s", ErrSamePath, in)
	}

	s, ok := c.lookup(in)
	if !ok && c.strict && !c.dryRun {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(in))
	}

	if c.dryRun || !ok {
		if err := copyFile(in, out); err != nil {
			return nil, err
		}
		c.logger.Debug("copied file", "input", in, "output", out, "dry_run", c.dryRun)
		return &Result{Format: FormatCopy}, nil
	}

	data, err := readLimited(in, c.maxFileSize)
	if err != nil {
		return nil, err
	}
	cleaned, removed, err := s.strip(data)
	if err != nil {
		return nil, fmt.Errorf("failed to strip %s metadata from %s: %w", s.format, filepath.Base(in), err)
	}
	if err := writeAtomic(out, cleaned); err != nil {
		return nil, err
	}

	c.logger.Debug("stripped metadata", "input", in, "output", out, "format", s.format, "removed", len(removed))
	return &Result{Format: s.format, Removed: removed}, nil
}

// Supports reports whether in would be stripped rather than copied.
func (c *Cleaner) Supports(path string) bool {
	_, ok := c.lookup(path)
	return ok
}

func (c *Cleaner) lookup(path string) (stripper, bool) {
	for _, s := range c.strippers {
		if s.supports(path) {
			return s, true
		}
	}
	return stripper{}, false
}

func hasExt(exts ...string) func(string) bool {
	return func(path string) bool {
		ext := filepath.Ext(path)
		for _, e := range exts {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the input directory listing
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", metadata.ErrFileTooLarge, path, limit)
	}
	return data, nil
}

// copyFile streams in to out through a temporary file.
func copyFile(in, out string) error {
	src, err := os.Open(in) //nolint:gosec // path comes from the input directory listing
	if err != nil {
		return err
	}
	defer src.Close()

	return writeAtomicFrom(out, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
}

func writeAtomic(out string, data []byte) error {
	return writeAtomicFrom(out, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomicFrom(out string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(out)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), out); err != nil {
		return fmt.Errorf("failed to move cleaned file into place: %w", err)
	}
	return nil
}
