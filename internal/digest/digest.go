package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// ChunkSize is the read buffer size used when streaming file content.
const ChunkSize = 8192

// Algorithm names an extra fingerprint hash.
type Algorithm string

const (
	// BLAKE2b256 is BLAKE2b with a 256-bit output.
	BLAKE2b256 Algorithm = "blake2b-256"
	// BLAKE3 is BLAKE3 with the default 256-bit output.
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm converts a user supplied name into an Algorithm.
// Matching is case-insensitive.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(BLAKE2b256), "blake2b":
		return BLAKE2b256, nil
	case string(BLAKE3):
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// ParseAlgorithms parses a list of names, dropping duplicates.
func ParseAlgorithms(names []string) ([]Algorithm, error) {
	out := make([]Algorithm, 0, len(names))
	seen := make(map[Algorithm]bool, len(names))
	for _, n := range names {
		a, err := ParseAlgorithm(n)
		if err != nil {
			return nil, err
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out, nil
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case BLAKE2b256:
		return blake2b.New256(nil)
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Result holds the digests of one file.
type Result struct {
	// SHA256 is the lowercase hex SHA-256 of the content.
	SHA256 string
	// Fingerprints maps each requested extra algorithm to its hex digest.
	Fingerprints map[Algorithm]string
}

// File returns the lowercase hex SHA-256 digest of the file at path.
func File(path string) (string, error) {
	res, err := FileWithFingerprints(path, nil)
	if err != nil {
		return "", err
	}
	return res.SHA256, nil
}

// FileWithFingerprints hashes the file at path with SHA-256 and every
// algorithm in extra, reading the content once.
func FileWithFingerprints(path string, extra []Algorithm) (Result, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the caller's input set
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	res, err := Reader(f, extra)
	if err != nil {
		return Result{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return res, nil
}

// Reader hashes everything read from r.
func Reader(r io.Reader, extra []Algorithm) (Result, error) {
	primary := sha256.New()
	writers := []io.Writer{primary}
	extras := make(map[Algorithm]hash.Hash, len(extra))
	for _, a := range extra {
		if _, ok := extras[a]; ok {
			continue
		}
		h, err := a.newHash()
		if err != nil {
			return Result{}, err
		}
		extras[a] = h
		writers = append(writers, h)
	}

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(io.MultiWriter(writers...), r, buf); err != nil {
		return Result{}, err
	}

	res := Result{SHA256: hex.EncodeToString(primary.Sum(nil))}
	if len(extras) > 0 {
		res.Fingerprints = make(map[Algorithm]string, len(extras))
		for a, h := range extras {
			res.Fingerprints[a] = hex.EncodeToString(h.Sum(nil))
		}
	}
	return res, nil
}
