package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/prompttrace/internal/attribution"
	"github.com/vk/prompttrace/internal/host"
	"github.com/vk/prompttrace/internal/store"
	"github.com/vk/prompttrace/internal/tracking"
	"github.com/vk/prompttrace/internal/workflow"
)

const linearSnapshot = `{
	"5":  {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat"}},
	"8":  {"class_type": "KSampler", "inputs": {"positive": ["5", 0]}},
	"10": {"class_type": "SaveImage", "inputs": {"images": ["8", 0]}}
}`

type stubSwitches struct{ disabled bool }

func (s *stubSwitches) Disabled() bool { return s.disabled }

func newTestEngine(sw Switches) *Engine {
	reg := tracking.New(store.NewMemoryStore())
	g := workflow.New()
	return New(Config{
		Registry: reg,
		Resolver: attribution.New(reg, g),
		Graph:    g,
		Switches: sw,
	})
}

func TestRegisterPromptLoadsSnapshotAndResolves(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()

	id := e.RegisterPrompt(ctx, tracking.RegisterParams{
		NodeID:       "5",
		ExecutionKey: "key-5",
		PositiveText: "a cat",
		Snapshot:     host.PromptGraph(linearSnapshot),
	})
	require.NotEmpty(t, id)
	assert.Equal(t, 3, e.graph.NodeCount())

	rec, confidence := e.GetAttribution(ctx, "10", "")
	require.NotNil(t, rec)
	assert.Equal(t, "a cat", rec.PositiveText)
	assert.Equal(t, 1.0, confidence)
}

func TestRegisterPromptSurvivesBadSnapshot(t *testing.T) {
	e := newTestEngine(nil)

	id := e.RegisterPrompt(context.Background(), tracking.RegisterParams{
		NodeID:       "5",
		ExecutionKey: "key-5",
		PositiveText: "a cat",
		Snapshot:     host.PromptGraph(`{broken`),
	})
	assert.NotEmpty(t, id)

	rec, _ := e.GetAttribution(context.Background(), "5", "key-5")
	assert.NotNil(t, rec)
}

func TestRegisterHidden(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()

	id := e.RegisterHidden(ctx, "5", "a cat", "blurry", host.HiddenInputs{
		UniqueID:     "key-5",
		PromptGraph:  host.PromptGraph(linearSnapshot),
		ExtraPNGInfo: map[string]any{"seed": 42},
	})
	require.NotEmpty(t, id)

	rec, _ := e.GetAttribution(ctx, "5", "key-5")
	require.NotNil(t, rec)
	assert.Equal(t, "a cat", rec.PositiveText)
	assert.Equal(t, "blurry", rec.NegativeText)
	assert.Equal(t, 42, rec.Metadata["seed"])
}

func TestRegisterConnection(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()

	e.RegisterPrompt(ctx, tracking.RegisterParams{NodeID: "5", ExecutionKey: "key-5", PositiveText: "a cat"})
	e.RegisterConnection("5", "10")

	rec, _ := e.GetAttribution(ctx, "5", "key-5")
	require.NotNil(t, rec)
	assert.True(t, rec.ConnectedTo("10"))
}

func TestDisabledEngineIsNoOp(t *testing.T) {
	sw := &stubSwitches{disabled: true}
	e := newTestEngine(sw)
	ctx := context.Background()

	id := e.RegisterPrompt(ctx, tracking.RegisterParams{NodeID: "5", ExecutionKey: "key-5"})
	assert.Empty(t, id)

	e.RegisterConnection("5", "10")

	rec, confidence := e.GetAttribution(ctx, "5", "key-5")
	assert.Nil(t, rec)
	assert.Zero(t, confidence)

	m := e.GetMetrics()
	assert.Equal(t, int64(0), m["total_tracked"])

	// Re-enabling resumes tracking with the same engine instance.
	sw.disabled = false
	id = e.RegisterPrompt(ctx, tracking.RegisterParams{NodeID: "5", ExecutionKey: "key-5"})
	assert.NotEmpty(t, id)
}

func TestGetMetricsKeys(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()

	e.RegisterPrompt(ctx, tracking.RegisterParams{
		NodeID:       "5",
		ExecutionKey: "key-5",
		Snapshot:     host.PromptGraph(linearSnapshot),
	})
	e.GetAttribution(ctx, "10", "")

	m := e.GetMetrics()
	for _, key := range []string{
		"total_tracked", "successful_pairs", "failed_pairs",
		"multi_node_workflows", "avg_confidence", "accuracy_rate",
		"active_prompts", "graph_nodes",
	} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, int64(1), m["total_tracked"])
	assert.Equal(t, 1, m["active_prompts"])
	assert.Equal(t, 3, m["graph_nodes"])
	assert.Equal(t, 1.0, m["avg_confidence"])
}
