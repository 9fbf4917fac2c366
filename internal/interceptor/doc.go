/*
Package interceptor wraps the host runtime's artifact-save entry points
so that every persisted artifact gets a chance to be linked back to the
prompt that produced it.

The contract is strict: the real save always executes first and its
result reaches the host byte-for-byte untouched; attribution starts only
after the save returns; and nothing that happens during attribution
(errors, panics, a missing record) may ever surface into the host's
synchronous call path.

Attribution bookkeeping and the durable link are offloaded to a single
background worker draining an unbounded FIFO queue, so storage latency
never blocks a save. An in-flight set deduplicates artifact paths that
nested or duplicate hook triggers would otherwise enqueue twice.
*/
package interceptor
