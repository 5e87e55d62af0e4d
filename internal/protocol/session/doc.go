// Package session owns link timing defaults and retry backoff.
//
// Ownership boundary:
// - connect, read poll and write timeouts
// - send cadence and receive buffering
// - retry/backoff primitives used by explicit reconnects
package session
