// Package store defines the durable prompt store collaborator and its
// implementations. The attribution engine only ever talks to the Store
// interface; durable writes happen on the interceptor's background
// worker, never on the host's calling thread.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// SavePromptParams carries everything needed to persist one prompt.
type SavePromptParams struct {
	Text         string
	NegativeText string
	Category     string
	Tags         []string
	Hash         string
}

// Store is the durable prompt store. LinkArtifact must be idempotent
// under retry of the same (promptID, artifactPath) pair.
type Store interface {
	// SavePrompt persists a prompt and returns its durable id.
	SavePrompt(ctx context.Context, params SavePromptParams) (string, error)

	// LinkArtifact durably associates an artifact path with a stored
	// prompt. Upsert semantics.
	LinkArtifact(ctx context.Context, promptID, artifactPath string, metadata map[string]any) error
}

// PromptHash returns the canonical hash for a prompt text pair. Used as
// the durable id when the caller supplies no hash of its own.
func PromptHash(text, negativeText string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + negativeText))
	return hex.EncodeToString(sum[:])
}
