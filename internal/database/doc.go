// Package database provides SQLite-based storage for MetaHunter run history.
//
// Every completed run is recorded in the runs table of a single history
// database under the XDG data directory:
//   - run identity, directories and timing
//   - file and clean error counts
//   - the risk summary as JSON
//   - the per-file analyses as a compressed CBOR blob
//
// Design decision: We use SQLite (via modernc.org/sqlite) because it is a
// single CGO-free file that needs no server, which fits a command line tool
// that may run on air-gapped machines.
//
// Integrity reports are never stored here. The Merkle root of a batch only
// lives in the integrity report file written next to the cleaned output.
package database
