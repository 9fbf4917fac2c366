// Package engine is the public face of the attribution core. Downstream
// collaborators register prompts and connections here and query
// attributions and metrics; the engine fans out to the tracking
// registry, the workflow graph, and the attribution resolver.
package engine

import (
	"context"

	"github.com/vk/prompttrace/internal/attribution"
	"github.com/vk/prompttrace/internal/ctxlog"
	"github.com/vk/prompttrace/internal/host"
	"github.com/vk/prompttrace/internal/tracking"
	"github.com/vk/prompttrace/internal/workflow"
)

// Switches is the kill-switch surface the engine polls per call.
type Switches interface {
	Disabled() bool
}

// alwaysOn is the fallback when no switch provider is wired.
type alwaysOn struct{}

func (alwaysOn) Disabled() bool { return false }

// Config wires the engine's collaborators.
type Config struct {
	Registry *tracking.Registry
	Resolver *attribution.Resolver
	Graph    *workflow.Graph
	Switches Switches
}

// Engine exposes the attribution core's produced interface.
type Engine struct {
	registry *tracking.Registry
	resolver *attribution.Resolver
	graph    *workflow.Graph
	switches Switches
}

func New(cfg Config) *Engine {
	sw := cfg.Switches
	if sw == nil {
		sw = alwaysOn{}
	}
	return &Engine{
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		graph:    cfg.Graph,
		switches: sw,
	}
}

// RegisterPrompt records one prompt-producing node execution and returns
// its execution id. When tracking is disabled it is a no-op returning an
// empty id. A workflow snapshot, if present, refreshes the shared graph
// best-effort.
func (e *Engine) RegisterPrompt(ctx context.Context, params tracking.RegisterParams) string {
	if e.switches.Disabled() {
		return ""
	}
	if len(params.Snapshot) > 0 {
		if err := e.graph.Load(ctx, params.Snapshot); err != nil {
			ctxlog.FromContext(ctx).Warn("failed to load workflow snapshot",
				"node_id", params.NodeID, "error", err)
		}
	}
	return e.registry.Register(ctx, params)
}

// RegisterHidden records a prompt-producing node execution from the
// values the runtime injects into its callback.
func (e *Engine) RegisterHidden(ctx context.Context, nodeID, positiveText, negativeText string, hidden host.HiddenInputs) string {
	return e.RegisterPrompt(ctx, tracking.RegisterParams{
		NodeID:       nodeID,
		ExecutionKey: hidden.UniqueID,
		PositiveText: positiveText,
		NegativeText: negativeText,
		Snapshot:     hidden.PromptGraph,
		Metadata:     hidden.ExtraPNGInfo,
	})
}

// RegisterConnection records an edge hint between two nodes.
func (e *Engine) RegisterConnection(fromID, toID string) {
	if e.switches.Disabled() {
		return
	}
	e.registry.RegisterConnection(fromID, toID)
}

// GetAttribution resolves which prompt produced the artifacts of the
// given save node. It returns nil with confidence 0.0 on a miss or when
// tracking is disabled.
func (e *Engine) GetAttribution(ctx context.Context, saveNodeID, executionKey string) (*tracking.Record, float64) {
	if e.switches.Disabled() {
		return nil, 0.0
	}
	return e.resolver.Resolve(ctx, saveNodeID, executionKey)
}

// GetMetrics snapshots the engine's counters. Keys are stable; a
// disabled engine reports zeros.
func (e *Engine) GetMetrics() map[string]any {
	if e.switches.Disabled() {
		return metricsMap(tracking.Metrics{}, 0)
	}
	return metricsMap(e.registry.Metrics(), e.graph.NodeCount())
}

func metricsMap(m tracking.Metrics, graphNodes int) map[string]any {
	return map[string]any{
		"total_tracked":        m.TotalTracked,
		"successful_pairs":     m.SuccessfulPairs,
		"failed_pairs":         m.FailedPairs,
		"multi_node_workflows": m.MultiNodeWorkflows,
		"avg_confidence":       m.AvgConfidence,
		"accuracy_rate":        m.AccuracyRate,
		"active_prompts":       m.ActivePrompts,
		"graph_nodes":          graphNodes,
	}
}
