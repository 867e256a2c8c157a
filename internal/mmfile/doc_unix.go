//go:build unix

// Package mmfile provides platform-specific helpers for obtaining large,
// zeroed memory slabs outside the Go heap.
package mmfile
