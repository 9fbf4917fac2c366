package workflow

import (
	"encoding/json"
	"strings"

	"github.com/vk/prompttrace/internal/host"
)

// NodeDesc is the decoded descriptor of a single workflow node.
type NodeDesc struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// promptTypeMarkers identify prompt-producing node types by substring
// match on the class tag. Covers the stock text encoders plus the
// tracked variants this engine ships.
var promptTypeMarkers = []string{
	"TextEncode",
	"PromptTrack",
}

// IsPromptProducer reports whether a node class tag denotes a
// prompt-producing node.
func IsPromptProducer(classType string) bool {
	for _, marker := range promptTypeMarkers {
		if strings.Contains(classType, marker) {
			return true
		}
	}
	return false
}

// decodeSnapshot parses the host's opaque prompt graph into node
// descriptors. The snapshot is a JSON object keyed by node id.
func decodeSnapshot(snapshot host.PromptGraph) (map[string]NodeDesc, error) {
	if len(snapshot) == 0 {
		return map[string]NodeDesc{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(snapshot, &raw); err != nil {
		return nil, err
	}
	nodes := make(map[string]NodeDesc, len(raw))
	for id, body := range raw {
		var desc NodeDesc
		if err := json.Unmarshal(body, &desc); err != nil {
			// Malformed node entries are skipped, not fatal.
			continue
		}
		nodes[id] = desc
	}
	return nodes, nil
}

// inputRef extracts a node reference from an input value. References are
// two-element arrays of [source_node_id, output_index]; anything else is
// a literal and carries no edge.
func inputRef(value any) (string, bool) {
	ref, ok := value.([]any)
	if !ok || len(ref) != 2 {
		return "", false
	}
	source, ok := ref[0].(string)
	if !ok || source == "" {
		return "", false
	}
	if _, ok := ref[1].(float64); !ok {
		return "", false
	}
	return source, true
}
