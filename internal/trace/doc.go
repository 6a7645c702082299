// Package trace records what a suppressible invocation is doing.
//
// Enable tracing via command-line flags:
//
//	suppressible coalesce --trace=- --trace-level=detail src/
//
// Tracer implementations:
//
//   - Nop: no-op tracer when disabled
//   - StreamTracer: writes every event immediately (text or NDJSON)
//   - RingTracer: keeps the last events in memory for a dump on failure
//   - TeeTracer: streams and keeps a ring, for --trace-mode=both
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only the ring dump on failure
//   - LevelPhase: commands, phases and archive transforms
//   - LevelDetail: adds per-source-unit events
//   - LevelDebug: adds per-archive-entry events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePhase, "parse")
//	defer span.End("")
//
// Work fanned out to goroutines passes trace.ParentID(ctx) to Begin.
package trace
