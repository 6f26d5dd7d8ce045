// Package diag defines the diagnostic model shared by every analysis phase.
//
// Diagnostic is the central record: Severity, a compact numeric Code with a
// stable string form, a human message, the primary source.Span, and optional
// Notes pointing at secondary spans ("first borrow is here").
//
// Phases emit through a Reporter so producers stay decoupled from storage and
// formatting. BagReporter aggregates into a Bag, which supports a hard limit,
// deterministic sorting, deduplication and merging. Rendering lives in
// internal/diagfmt; this package performs no formatting or IO.
//
// The engine reports findings as diagnostics, never as Go errors: analysis
// keeps running after a failure so one pass surfaces as many problems as
// possible.
package diag
