// Package main provides the entry point for the MetaHunter CLI.
//
// MetaHunter scans a directory of documents and images for identifying
// metadata, writes cleaned copies, scores every file by privacy risk and
// optionally commits the cleaned batch to a Merkle root.
//
// Usage:
//
//	metahunter run --input-dir raw --output-dir clean
//	metahunter scan <path>
//	metahunter logs --all
//
// See --help for all available options.
package main

// main is the entry point for MetaHunter.
func main() {
	Execute()
}
