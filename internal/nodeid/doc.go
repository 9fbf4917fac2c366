/*
Package nodeid centralizes handling of host pipeline node identifiers.

The host assigns every node in a workflow a string identifier. In practice
these are almost always decimal integers in authoring order ("3", "12"),
but third-party frontends are free to emit arbitrary strings, so nothing
here may assume parseability.

The package provides numeric-aware parsing and a deterministic total
ordering used to break ties between attribution candidates: numeric ids
sort ascending before any non-numeric ids, which sort lexicographically.
*/
package nodeid
