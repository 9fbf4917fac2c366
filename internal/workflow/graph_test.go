package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/prompttrace/internal/host"
)

// snapshot builds the canonical host prompt-graph JSON from a compact
// description: node id -> class type and input references.
func snapshot(t *testing.T, nodes map[string]NodeDesc) host.PromptGraph {
	t.Helper()
	parts := "{"
	first := true
	for id, desc := range nodes {
		if !first {
			parts += ","
		}
		first = false
		inputs := "{"
		firstInput := true
		for name, val := range desc.Inputs {
			if !firstInput {
				inputs += ","
			}
			firstInput = false
			switch v := val.(type) {
			case []any:
				inputs += fmt.Sprintf("%q:[%q,%v]", name, v[0], v[1])
			case string:
				inputs += fmt.Sprintf("%q:%q", name, v)
			default:
				inputs += fmt.Sprintf("%q:%v", name, v)
			}
		}
		inputs += "}"
		parts += fmt.Sprintf("%q:{\"class_type\":%q,\"inputs\":%s}", id, desc.ClassType, inputs)
	}
	parts += "}"
	return host.PromptGraph(parts)
}

// linearSnapshot returns 5(encode) -> 8(sampler) -> 10(save).
func linearSnapshot(t *testing.T) host.PromptGraph {
	return snapshot(t, map[string]NodeDesc{
		"5":  {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a cat"}},
		"8":  {ClassType: "KSampler", Inputs: map[string]any{"positive": []any{"5", 0}}},
		"10": {ClassType: "SaveImage", Inputs: map[string]any{"images": []any{"8", 0}}},
	})
}

func TestLoadBuildsEdges(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), linearSnapshot(t)))

	assert.Equal(t, 3, g.NodeCount())

	desc, ok := g.Node("8")
	require.True(t, ok)
	assert.Equal(t, "KSampler", desc.ClassType)

	paths := g.FindPaths("5", "10", 0)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"5", "8", "10"}, paths[0])
}

func TestLoadClearsPriorState(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), linearSnapshot(t)))

	// A second load replaces the graph entirely; no cross-snapshot edges.
	require.NoError(t, g.Load(context.Background(), snapshot(t, map[string]NodeDesc{
		"20": {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a dog"}},
	})))
	assert.Equal(t, 1, g.NodeCount())
	assert.Empty(t, g.FindPaths("5", "10", 0))
}

func TestLoadSkipsMalformedEntries(t *testing.T) {
	g := New()
	raw := host.PromptGraph(`{
		"5": {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat"}},
		"6": "not an object",
		"7": {"class_type": "KSampler", "inputs": {"positive": ["5", 0], "broken": ["missing", 0]}}
	}`)
	require.NoError(t, g.Load(context.Background(), raw))

	assert.Equal(t, 2, g.NodeCount())
	paths := g.FindPaths("5", "7", 0)
	require.Len(t, paths, 1)
}

func TestLoadInvalidJSONLeavesGraphEmpty(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), linearSnapshot(t)))

	err := g.Load(context.Background(), host.PromptGraph(`{broken`))
	assert.Error(t, err)
	assert.Equal(t, 0, g.NodeCount())
}

func TestFindPathsAbsentEndpoints(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), linearSnapshot(t)))

	assert.Empty(t, g.FindPaths("5", "99", 0))
	assert.Empty(t, g.FindPaths("99", "10", 0))
}

func TestFindPathsRespectsMaxDepth(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), linearSnapshot(t)))

	assert.Empty(t, g.FindPaths("5", "10", 1))
	assert.Len(t, g.FindPaths("5", "10", 2), 1)
}

func TestFindPromptSources(t *testing.T) {
	g := New()
	// Two encoders feeding one sampler feeding one save node.
	require.NoError(t, g.Load(context.Background(), snapshot(t, map[string]NodeDesc{
		"5":  {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a cat"}},
		"7":  {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "ugly"}},
		"8":  {ClassType: "KSampler", Inputs: map[string]any{"positive": []any{"5", 0}, "negative": []any{"7", 0}}},
		"10": {ClassType: "SaveImage", Inputs: map[string]any{"images": []any{"8", 0}}},
	})))

	assert.Equal(t, []string{"5", "7"}, g.FindPromptSources("10"))
	assert.Empty(t, g.FindPromptSources("5"))
	assert.Empty(t, g.FindPromptSources("99"))
}

func TestTopologicalOrder(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), linearSnapshot(t)))

	order, complete := g.TopologicalOrder()
	assert.True(t, complete)
	assert.Equal(t, []string{"5", "8", "10"}, order)
}

func TestTopologicalOrderCycleIsPartial(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), snapshot(t, map[string]NodeDesc{
		"1": {ClassType: "LoopA", Inputs: map[string]any{"in": []any{"2", 0}}},
		"2": {ClassType: "LoopB", Inputs: map[string]any{"in": []any{"1", 0}}},
		"3": {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "x"}},
	})))

	order, complete := g.TopologicalOrder()
	assert.False(t, complete)
	assert.Equal(t, []string{"3"}, order)
}

func TestMergePoints(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), snapshot(t, map[string]NodeDesc{
		"5":  {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a"}},
		"7":  {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "b"}},
		"8":  {ClassType: "KSampler", Inputs: map[string]any{"positive": []any{"5", 0}, "negative": []any{"7", 0}}},
		"10": {ClassType: "SaveImage", Inputs: map[string]any{"images": []any{"8", 0}}},
	})))

	assert.Equal(t, []string{"8"}, g.MergePoints())
}

// TestConcurrentLoadAndQuery verifies a reload racing path queries never
// produces a torn read.
func TestConcurrentLoadAndQuery(t *testing.T) {
	g := New()
	require.NoError(t, g.Load(context.Background(), linearSnapshot(t)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = g.Load(context.Background(), linearSnapshot(t))
		}()
		go func() {
			defer wg.Done()
			for _, path := range g.FindPaths("5", "10", 0) {
				// Paths come from exactly one snapshot generation.
				assert.Equal(t, []string{"5", "8", "10"}, path)
			}
			_ = g.FindPromptSources("10")
		}()
	}
	wg.Wait()
}

func TestIsPromptProducer(t *testing.T) {
	assert.True(t, IsPromptProducer("CLIPTextEncode"))
	assert.True(t, IsPromptProducer("PromptTrackCombined"))
	assert.False(t, IsPromptProducer("KSampler"))
	assert.False(t, IsPromptProducer(""))
}
