package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Algorithm is the name of the hash function used for leaves and inner
// nodes. It is written verbatim into every IntegrityReport.
const Algorithm = "SHA-256"

// DigestLength is the length of a hex-encoded SHA-256 digest.
const DigestLength = sha256.Size * 2

// BuildMerkleRoot folds an ordered list of hex digests into a single Merkle
// root.
//
// Digests are accepted in any case and normalized to lowercase before
// hashing. A single digest is its own root. An odd level is padded by
// duplicating its last node. Inner nodes hash the concatenated hex strings
// of their children with no separator.
//
// It returns ErrInvalidInput when digests is empty or when any element is
// not a 64-character hex string. The input slice is never modified.
func BuildMerkleRoot(digests []string) (string, error) {
	if len(digests) == 0 {
		return "", fmt.Errorf("%w: no digests to build a Merkle root from", ErrInvalidInput)
	}

	level := make([]string, len(digests), len(digests)+1)
	for i, d := range digests {
		normalized, err := NormalizeDigest(d)
		if err != nil {
			return "", fmt.Errorf("digest %d: %w", i, err)
		}
		level[i] = normalized
	}

	for len(level) > 1 {
		level = nextLevel(level)
	}

	return level[0], nil
}

// nextLevel hashes one level of the tree into its parent level.
// The argument may be extended in place with a duplicated last node.
func nextLevel(level []string) []string {
	if len(level)%2 == 1 {
		level = append(level, level[len(level)-1])
	}

	next := make([]string, 0, len(level)/2+1)
	for i := 0; i < len(level); i += 2 {
		next = append(next, hashPair(level[i], level[i+1]))
	}
	return next
}

// hashPair returns hex(sha256(left || right)) over the hex strings.
func hashPair(left, right string) string {
	h := sha256.New()
	h.Write([]byte(left))
	h.Write([]byte(right))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeDigest lowercases d and checks that it is a 64-character hex
// string. It returns ErrInvalidInput otherwise.
func NormalizeDigest(d string) (string, error) {
	if len(d) != DigestLength {
		return "", fmt.Errorf("%w: digest %q has length %d, want %d", ErrInvalidInput, d, len(d), DigestLength)
	}
	lower := strings.ToLower(d)
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: digest %q contains non-hex character %q", ErrInvalidInput, d, c)
		}
	}
	return lower, nil
}
