// Package trace records what a fencefmt run did and how long each part took.
//
// Enable tracing via command-line flags:
//
//	fencefmt --trace=- --trace-level=detail docs/
//
// Implementations:
//
//   - Nop: no-op tracer when disabled
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: last N events kept in memory
//   - MultiTracer: fan-out to several tracers
//
// Levels control verbosity: LevelPhase shows stage boundaries (walk, detect,
// formatter), LevelDetail adds one event per document, LevelDebug emits
// everything.
//
// Tracers travel through the run via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "walk", 0)
//	defer span.End("")
package trace
