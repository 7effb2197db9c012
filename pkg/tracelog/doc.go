// Package tracelog provides structured decision tracing for blemux.
//
// This package defines the Logger interface and Event types for capturing
// what the core decided and why: sighting ingests, arbitration switches,
// subscriber notifications, availability expiries, slot grants and
// releases, and registry changes. It is separate from operational logging
// (slog) - a trace is a complete machine-readable record for debugging
// and analysis.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: log to console via slog
//	mgr.SetTraceLogger(tracelog.NewSlogAdapter(slog.Default()))
//
//	// For production: write to binary file
//	l, _ := tracelog.NewFileLogger("/var/log/blemux/core.btrace")
//	mgr.SetTraceLogger(l)
//
//	// Both: use MultiLogger
//	mgr.SetTraceLogger(tracelog.NewMultiLogger(
//	    tracelog.NewSlogAdapter(slog.Default()),
//	    l,
//	))
//
// # File Format
//
// Trace files use CBOR encoding with integer keys and a .btrace
// extension. The blemux-trace CLI tool provides viewing, export, and
// statistics.
package tracelog
