/*
Package attribution decides which tracked prompt record produced the
artifact a save event is persisting.

Resolution tries, in order: direct lookup by execution key, lookup by
producing node id when the save node is itself a prompt producer, and
finally a trace through the execution graph from the save node back to
its prompt sources. Every hit is scored on a [0,1] confidence scale from
three signals: ambiguity (several prompt sources feed the same save
target), an explicit-connection bonus, and record age.

Ties between candidates with equal scores break by ascending numeric node
id. Save order in the host does not correlate with authoring order, so
authoring order is the most stable proxy available for the prompt the
user meant to track.

Resolve never fails loudly; a total miss returns (nil, 0) and a
diagnostic log line listing the live execution keys.
*/
package attribution
