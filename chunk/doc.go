// Package chunk rewrites a loop with a proven governing induction variable
// so its iterations can execute in fixed-size chunks.
//
// A chunked loop only re-checks its exit condition once per chunk, so an
// exact equality test could be stepped over; Derive widens the exit
// predicate to an inclusive relation consistent with the step sign. The
// Transform then exposes the mutations strip-mining needs: a chunk counter
// merge node, chunk-boundary advancement of the governing variable, the
// normalized exit guard rewrite, and guard cloning at other program points.
//
// The mutations write to program state owned by the invoking scheduler;
// callers must serialize all mutation calls for a given loop.
package chunk
