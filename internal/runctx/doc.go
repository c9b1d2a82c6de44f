// Package runctx holds the identity of one pipeline run: its run ID and
// the default locations of the artifacts it produces.
//
// Components never read the wall clock themselves. They receive a Clock,
// which lets tests pin the run ID and every path derived from it.
package runctx
