package integrity

import "fmt"

// FileDigest pairs a file identifier with its hex content digest.
type FileDigest struct {
	// Path identifies the file inside the batch. It is opaque to the tree.
	Path string `json:"path"`

	// Hash is the hex SHA-256 digest of the file content.
	Hash string `json:"hash"`
}

// FileHashes is an insertion-ordered mapping of path to digest.
//
// Go maps have no stable iteration order, and the Merkle root commits to
// the order of its leaves, so batches are collected in this type instead.
// The zero value is ready to use.
type FileHashes struct {
	entries []FileDigest
	index   map[string]int
}

// NewFileHashes returns a mapping holding the given digests in order.
// Later duplicates of a path overwrite the earlier digest in place.
func NewFileHashes(digests ...FileDigest) *FileHashes {
	fh := &FileHashes{}
	for _, d := range digests {
		fh.Set(d.Path, d.Hash)
	}
	return fh
}

// Set records the digest for path. A new path is appended at the end;
// an existing path keeps its position and gets the new digest.
func (fh *FileHashes) Set(path, digest string) {
	if fh.index == nil {
		fh.index = make(map[string]int)
	}
	if i, ok := fh.index[path]; ok {
		fh.entries[i].Hash = digest
		return
	}
	fh.index[path] = len(fh.entries)
	fh.entries = append(fh.entries, FileDigest{Path: path, Hash: digest})
}

// Get returns the digest recorded for path.
func (fh *FileHashes) Get(path string) (string, bool) {
	if fh == nil {
		return "", false
	}
	i, ok := fh.index[path]
	if !ok {
		return "", false
	}
	return fh.entries[i].Hash, true
}

// Len returns the number of paths in the mapping.
func (fh *FileHashes) Len() int {
	if fh == nil {
		return 0
	}
	return len(fh.entries)
}

// Entries returns a copy of the mapping in insertion order.
func (fh *FileHashes) Entries() []FileDigest {
	if fh == nil {
		return nil
	}
	out := make([]FileDigest, len(fh.entries))
	copy(out, fh.entries)
	return out
}

// Digests returns the digest values in insertion order.
func (fh *FileHashes) Digests() []string {
	if fh == nil {
		return nil
	}
	out := make([]string, len(fh.entries))
	for i, e := range fh.entries {
		out[i] = e.Hash
	}
	return out
}

// IntegrityReport is the persisted commitment over one batch of files.
// It is built once by BuildIntegrityReport and not modified afterwards.
//
// Field order matches the JSON artifact: algorithm, merkle_root, files.
type IntegrityReport struct {
	// Algorithm names the hash function, always "SHA-256".
	Algorithm string `json:"algorithm"`

	// MerkleRoot is the root over Files' hashes in order.
	MerkleRoot string `json:"merkle_root"`

	// Files lists every committed file in batch order.
	Files []FileDigest `json:"files"`
}

// BuildIntegrityReport builds the integrity report for an ordered batch.
//
// It returns ErrInvalidInput when fileHashes is nil or empty, before any
// tree work is attempted, and propagates ErrInvalidInput from
// BuildMerkleRoot for malformed digests.
func BuildIntegrityReport(fileHashes *FileHashes) (*IntegrityReport, error) {
	if fileHashes.Len() == 0 {
		return nil, fmt.Errorf("%w: no file hashes provided for the integrity report", ErrInvalidInput)
	}

	root, err := BuildMerkleRoot(fileHashes.Digests())
	if err != nil {
		return nil, fmt.Errorf("failed to build Merkle root: %w", err)
	}

	return &IntegrityReport{
		Algorithm:  Algorithm,
		MerkleRoot: root,
		Files:      fileHashes.Entries(),
	}, nil
}

// FileCount returns the number of committed files.
func (r *IntegrityReport) FileCount() int {
	return len(r.Files)
}
