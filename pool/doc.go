// Package pool provides the runtime task queue and worker pool that
// parallelized programs execute on.
//
// Queue is a multi-producer/multi-consumer queue with blocking bounded
// push, blocking pop, non-blocking pop, and an invalidate operation that
// unblocks every waiter and fails all subsequent operations. Pool drains a
// shared Queue with a fixed set of workers, each reporting an idle flag;
// closing a pool drains its shutdown callbacks, invalidates the queue and
// joins the workers.
//
// Nothing in this package is used by the analysis itself, which is pure and
// single-threaded.
package pool
