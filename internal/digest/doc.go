// Package digest computes content digests of files.
//
// Every file gets a SHA-256 digest, streamed in fixed-size chunks so memory
// use does not grow with the file. Callers may ask for extra fingerprints
// (BLAKE2b-256, BLAKE3) which are computed in the same pass over the data.
package digest
