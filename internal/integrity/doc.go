// Package integrity builds the tamper-evidence commitment for a batch of
// processed files.
//
// A batch is an ordered mapping of file path to hex SHA-256 digest. The
// digests are folded into a single Merkle root by repeated pairwise hashing
// and the root, the algorithm name and the per-file digest list are wrapped
// into an IntegrityReport that callers persist as JSON.
//
// # Tree construction
//
// Level 0 holds the input digests in caller order, lowercased. While a level
// has more than one node, an odd level is padded by duplicating its last node
// and each pair (left, right) is replaced by
//
//	hex(sha256(left || right))
//
// where left and right are the 64-character hex strings themselves, not the
// raw 32-byte digests. Reports written by earlier releases commit to this
// exact byte layout, so it must not change without a new format version.
//
// Pairing is positional: reordering the batch changes the root. Paths are
// not hashed; only the order of the digests is.
//
// Everything in this package is pure and safe for concurrent use.
package integrity
