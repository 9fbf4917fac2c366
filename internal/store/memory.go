package store

import (
	"context"
	"sync"
)

// MemoryStore is the in-process Store used when no Redis endpoint is
// configured, and by tests. Same idempotent-link semantics as the Redis
// implementation.
type MemoryStore struct {
	mu      sync.Mutex
	prompts map[string]SavePromptParams
	links   map[string]map[string]map[string]any // prompt id -> artifact path -> metadata
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prompts: make(map[string]SavePromptParams),
		links:   make(map[string]map[string]map[string]any),
	}
}

// SavePrompt stores the prompt under its hash-derived id.
func (s *MemoryStore) SavePrompt(ctx context.Context, params SavePromptParams) (string, error) {
	id := params.Hash
	if id == "" {
		id = PromptHash(params.Text, params.NegativeText)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[id] = params
	return id, nil
}

// LinkArtifact records the link, overwriting any previous metadata for
// the same (promptID, artifactPath) pair.
func (s *MemoryStore) LinkArtifact(ctx context.Context, promptID, artifactPath string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.links[promptID] == nil {
		s.links[promptID] = make(map[string]map[string]any)
	}
	s.links[promptID][artifactPath] = metadata
	return nil
}

// Prompt returns a stored prompt by id.
func (s *MemoryStore) Prompt(id string) (SavePromptParams, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[id]
	return p, ok
}

// Links returns the artifact paths linked to a prompt.
func (s *MemoryStore) Links(promptID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.links[promptID]))
	for path := range s.links[promptID] {
		paths = append(paths, path)
	}
	return paths
}

// LinkCount returns the total number of recorded links across prompts.
func (s *MemoryStore) LinkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, byPath := range s.links {
		total += len(byPath)
	}
	return total
}
