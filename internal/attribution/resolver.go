package attribution

import (
	"context"
	"log/slog"
	"time"

	"github.com/vk/prompttrace/internal/ctxlog"
	"github.com/vk/prompttrace/internal/nodeid"
	"github.com/vk/prompttrace/internal/tracking"
	"github.com/vk/prompttrace/internal/workflow"
)

// Confidence scoring constants.
const (
	ambiguityPenalty = 0.8
	connectionBonus  = 1.2
	recencyPenalty   = 0.9

	// recencyWindow is the age past which a record's score decays.
	recencyWindow = 60 * time.Second
)

// Resolver maps save events to tracked prompt records.
type Resolver struct {
	registry     *tracking.Registry
	graph        *workflow.Graph
	now          func() time.Time
	maxPathDepth int
}

// New creates a resolver over the given registry and graph model.
func New(registry *tracking.Registry, graph *workflow.Graph) *Resolver {
	return &Resolver{
		registry:     registry,
		graph:        graph,
		now:          time.Now,
		maxPathDepth: workflow.DefaultMaxPathDepth,
	}
}

// SetMaxPathDepth bounds the path enumeration used for ambiguity
// diagnostics. Non-positive values are ignored.
func (r *Resolver) SetMaxPathDepth(depth int) {
	if depth > 0 {
		r.maxPathDepth = depth
	}
}

// Resolve returns the record responsible for the artifact being saved by
// saveNodeID, plus a confidence score. executionKey may be empty. A total
// miss returns (nil, 0); Resolve itself never fails.
func (r *Resolver) Resolve(ctx context.Context, saveNodeID, executionKey string) (*tracking.Record, float64) {
	logger := ctxlog.FromContext(ctx)

	sources := r.graph.FindPromptSources(saveNodeID)
	if len(sources) > 1 {
		r.registry.NoteMultiProducer()
		if logger.Enabled(ctx, slog.LevelDebug) {
			logger.Debug("ambiguous save target",
				"save_node_id", saveNodeID,
				"prompt_sources", sources,
				"primary_source", nodeid.Min(sources))
			for _, src := range sources {
				logger.Debug("prompt source trace",
					"prompt_source", src,
					"save_node_id", saveNodeID,
					"paths", len(r.graph.FindPaths(src, saveNodeID, r.maxPathDepth)))
			}
		}
	}

	// 1. Direct lookup by execution key, the fast path.
	if executionKey != "" {
		if rec, ok := r.registry.Lookup(executionKey); ok {
			return r.finish(ctx, rec, saveNodeID, sources)
		}
	}

	// 2. The save node is itself a known prompt producer.
	if r.isPromptProducer(saveNodeID) {
		if rec, ok := r.registry.LookupByProducer(saveNodeID); ok {
			return r.finish(ctx, rec, saveNodeID, sources)
		}
	}

	// 3. Trace the graph back from the save node and score every live
	// record registered by one of its prompt sources.
	if best := r.bestTracedCandidate(saveNodeID, sources); best != nil {
		return r.finish(ctx, best, saveNodeID, sources)
	}

	logger.Warn("attribution miss",
		"save_node_id", saveNodeID,
		"execution_key", executionKey,
		"live_keys", r.registry.LiveKeys())
	return nil, 0.0
}

// isPromptProducer checks the naming convention for prompt-producing
// nodes: either the graph knows the node's class tag, or the registry
// holds a record produced under that node id.
func (r *Resolver) isPromptProducer(saveNodeID string) bool {
	if desc, ok := r.graph.Node(saveNodeID); ok {
		return workflow.IsPromptProducer(desc.ClassType)
	}
	if _, ok := r.registry.LookupByProducer(saveNodeID); ok {
		return true
	}
	return false
}

// bestTracedCandidate scores every live record whose producer is in the
// source set and returns the winner. Equal scores break by ascending
// numeric node id.
func (r *Resolver) bestTracedCandidate(saveNodeID string, sources []string) *tracking.Record {
	sourceSet := make(map[string]struct{}, len(sources))
	for _, id := range sources {
		sourceSet[id] = struct{}{}
	}

	var best *tracking.Record
	var bestScore float64
	for _, rec := range r.registry.LiveRecords() {
		if _, ok := sourceSet[rec.NodeID]; !ok {
			continue
		}
		score := r.score(rec, saveNodeID, sources)
		switch {
		case best == nil,
			score > bestScore,
			score == bestScore && nodeid.Less(rec.NodeID, best.NodeID):
			best = rec
			bestScore = score
		}
	}
	return best
}

// score computes the confidence for one candidate record against a save
// target.
func (r *Resolver) score(rec *tracking.Record, saveNodeID string, sources []string) float64 {
	confidence := 1.0
	if len(sources) > 1 {
		confidence *= ambiguityPenalty
	}
	if rec.ConnectedTo(saveNodeID) {
		confidence *= connectionBonus
		if confidence > 1.0 {
			confidence = 1.0
		}
	}
	if r.now().Sub(rec.CreatedAt) > recencyWindow {
		confidence *= recencyPenalty
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// finish applies scoring and bookkeeping to a resolved record.
func (r *Resolver) finish(ctx context.Context, rec *tracking.Record, saveNodeID string, sources []string) (*tracking.Record, float64) {
	confidence := r.score(rec, saveNodeID, sources)
	rec.Confidence = confidence
	r.registry.SetConfidence(rec.ExecutionKey, confidence)
	r.registry.NoteResolution(confidence)

	ctxlog.FromContext(ctx).Debug("attribution resolved",
		"save_node_id", saveNodeID,
		"execution_key", rec.ExecutionKey,
		"node_id", rec.NodeID,
		"confidence", confidence,
		"prompt_sources", len(sources))
	return rec, confidence
}
