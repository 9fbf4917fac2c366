/*
Package workflow maintains the in-memory execution graph model.

The model is rebuilt wholesale from the workflow snapshot each time one is
loaded and discarded on the next load. Edges are derived exclusively from
the current snapshot: every node input holding a two-element reference
[source_node_id, output_index] contributes a directed edge from the source
node to the referencing node. Malformed entries are skipped, never fatal.

Path enumeration and topological ordering exist for diagnostics and
resolver fallback, not for the hot lookup path.
*/
package workflow
