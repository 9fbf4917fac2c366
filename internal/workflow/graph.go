package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/vk/prompttrace/internal/ctxlog"
	"github.com/vk/prompttrace/internal/host"
)

// DefaultMaxPathDepth bounds path enumeration when the caller does not
// supply a limit of its own.
const DefaultMaxPathDepth = 20

// Graph is the in-memory execution graph model. All operations are
// concurrency-safe; a reload swaps the whole state under the write lock
// so concurrent path queries see either the old or the new snapshot,
// never a torn one.
type Graph struct {
	mu      sync.RWMutex
	nodes   map[string]NodeDesc
	forward map[string]map[string]struct{} // source -> set of targets
	reverse map[string]map[string]struct{} // target -> set of sources
}

// New creates an empty graph model.
func New() *Graph {
	g := &Graph{}
	g.reset()
	return g
}

func (g *Graph) reset() {
	g.nodes = make(map[string]NodeDesc)
	g.forward = make(map[string]map[string]struct{})
	g.reverse = make(map[string]map[string]struct{})
}

// Load clears prior state and rebuilds the graph from the given workflow
// snapshot. Malformed node entries and non-reference inputs are skipped.
// Only a snapshot that fails to decode at the top level is an error, and
// even then the graph is left in a valid (empty) state.
func (g *Graph) Load(ctx context.Context, snapshot host.PromptGraph) error {
	logger := ctxlog.FromContext(ctx)

	nodes, err := decodeSnapshot(snapshot)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
	if err != nil {
		logger.Warn("workflow snapshot is not valid JSON, graph left empty", "error", err)
		return err
	}

	g.nodes = nodes
	for id, desc := range nodes {
		for _, value := range desc.Inputs {
			source, ok := inputRef(value)
			if !ok {
				continue
			}
			if _, known := nodes[source]; !known {
				// Dangling reference; skip rather than invent a node.
				continue
			}
			if g.forward[source] == nil {
				g.forward[source] = make(map[string]struct{})
			}
			g.forward[source][id] = struct{}{}
			if g.reverse[id] == nil {
				g.reverse[id] = make(map[string]struct{})
			}
			g.reverse[id][source] = struct{}{}
		}
	}
	logger.Debug("workflow graph rebuilt", "nodes", len(g.nodes))
	return nil
}

// Clear discards all graph state.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

// Node returns the descriptor for a node id.
func (g *Graph) Node(id string) (NodeDesc, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	desc, ok := g.nodes[id]
	return desc, ok
}

// NodeCount returns the number of nodes in the current snapshot.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// FindPaths enumerates all simple paths (no node revisited) from one node
// to another, up to maxDepth edges. Either endpoint being absent yields an
// empty result. Diagnostics only; not the hot path.
func (g *Graph) FindPaths(fromID, toID string, maxDepth int) [][]string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxPathDepth
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[fromID]; !ok {
		return nil
	}
	if _, ok := g.nodes[toID]; !ok {
		return nil
	}

	var paths [][]string
	queue := [][]string{{fromID}}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		last := path[len(path)-1]
		if last == toID {
			paths = append(paths, path)
			continue
		}
		if len(path)-1 >= maxDepth {
			continue
		}
		for next := range g.forward[last] {
			if containsNode(path, next) {
				continue
			}
			branch := make([]string, len(path), len(path)+1)
			copy(branch, path)
			queue = append(queue, append(branch, next))
		}
	}
	return paths
}

// FindPromptSources returns the ids of all prompt-producing nodes that
// have any path to the target node. The result is sorted for determinism.
func (g *Graph) FindPromptSources(targetID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[targetID]; !ok {
		return nil
	}

	var sources []string
	visited := map[string]struct{}{targetID: {}}
	queue := []string{targetID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for upstream := range g.reverse[current] {
			if _, seen := visited[upstream]; seen {
				continue
			}
			visited[upstream] = struct{}{}
			if IsPromptProducer(g.nodes[upstream].ClassType) {
				sources = append(sources, upstream)
			}
			queue = append(queue, upstream)
		}
	}
	sort.Strings(sources)
	return sources
}

// TopologicalOrder returns a Kahn's-algorithm ordering of all nodes. If
// the snapshot contains a cycle the returned order is partial and the
// second return value is false; callers must treat it as advisory only.
func (g *Graph) TopologicalOrder() ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.reverse[id])
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for target := range g.forward[id] {
			indegree[target]--
			if indegree[target] == 0 {
				unlocked = append(unlocked, target)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}
	return order, len(order) == len(g.nodes)
}

// MergePoints returns the nodes fed by more than one upstream node.
// Informational; explains multi-source ambiguity in diagnostics.
func (g *Graph) MergePoints() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var merges []string
	for id, sources := range g.reverse {
		if len(sources) > 1 {
			merges = append(merges, id)
		}
	}
	sort.Strings(merges)
	return merges
}

func containsNode(path []string, id string) bool {
	for _, n := range path {
		if n == id {
			return true
		}
	}
	return false
}
