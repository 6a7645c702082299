// Package diag defines the finding model shared by the interception,
// coalescing and fix-application layers.
//
// # Data model
//
// Finding is the central record. It contains:
//
//   - Check – name of the check that raised it; the suppression key.
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Message – human oriented text.
//   - Primary – the source.Span of the exact node the finding is about. This is
//     the only location the rest of the pipeline trusts.
//   - Fixes – suggested edits.
//
// The zero Finding is NoFinding, the "nothing matched" value that flows
// through interception untouched.
//
// # Fixes
//
// A Fix is data only: a title, an applicability level and a list of TextEdit
// values. A TextEdit replaces Span with NewText; a zero-width span inserts.
// OldText is an optional guard the fix engine checks before applying.
//
// # Emitting findings
//
// Producers use a Reporter. BagReporter collects into a Bag, which supports
// sorting and deduplication so that output is deterministic.
//
// Findings produced by the analysis engine cross the process boundary as JSON
// (see LoadFindings).
package diag
