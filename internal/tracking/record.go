package tracking

import (
	"time"

	"github.com/vk/prompttrace/internal/host"
)

// MetaPromptID is the metadata key under which the durable store id of a
// prompt is attached to a record after the background save completes.
const MetaPromptID = "prompt_id"

// Record is one tracked prompt registration. ExecutionKey is unique among
// live records at any instant and is the primary lookup key; NodeID is
// the logical producing node and may repeat across executions.
type Record struct {
	NodeID       string
	ExecutionKey string
	ExecutionID  string // diagnostic correlation id, distinct from the key

	PositiveText string
	NegativeText string
	Snapshot     host.PromptGraph

	Metadata          map[string]any
	CreatedAt         time.Time
	ConnectedNodeIDs  map[string]struct{}
	ProducedArtifacts []string
	Confidence        float64
}

// ConnectedTo reports whether the record's producer is known to feed the
// given node.
func (r *Record) ConnectedTo(nodeID string) bool {
	_, ok := r.ConnectedNodeIDs[nodeID]
	return ok
}

// clone returns a deep copy safe to hand out after the registry lock is
// released.
func (r *Record) clone() *Record {
	cp := *r
	cp.Metadata = make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		cp.Metadata[k] = v
	}
	cp.ConnectedNodeIDs = make(map[string]struct{}, len(r.ConnectedNodeIDs))
	for k := range r.ConnectedNodeIDs {
		cp.ConnectedNodeIDs[k] = struct{}{}
	}
	cp.ProducedArtifacts = append([]string(nil), r.ProducedArtifacts...)
	return &cp
}
