/*
Package tracking owns the live prompt records of the attribution engine.

A record is born when a prompt-producing node registers itself during an
execution pass and dies either by age-based eviction or by the new-round
wipe: when a registration arrives under an unseen execution key while
every existing record is older than the staleness threshold, the whole
registry is cleared first. That heuristic caps memory and prevents stale
cross-run attribution at the cost of dropping legitimately long-running
concurrent executions.

All registry state sits behind one mutex. Every operation is a short
in-memory affair; the only I/O (the durable artifact link) happens after
the lock is released and only ever on the interceptor's background
worker.
*/
package tracking
