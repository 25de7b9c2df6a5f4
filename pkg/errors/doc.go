// Package errors defines the sentinel errors shared across the server.
//
// The sentinels fall into five groups matching the failure modes of the
// multiplexing core: protocol (bad frames, unknown channels), validation
// (bad payloads), authentication, addressing (point-to-point misses) and
// store failures. Callers wrap them with fmt.Errorf("...: %w", err) and
// classify with errors.Is.
package errors
