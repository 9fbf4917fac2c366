package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptHashStable(t *testing.T) {
	a := PromptHash("a cat", "blurry")
	b := PromptHash("a cat", "blurry")
	assert.Equal(t, a, b)

	// The separator keeps (positive, negative) pairs from colliding.
	assert.NotEqual(t, PromptHash("a cat", "blurry"), PromptHash("a catblurry", ""))
}

func TestMemoryStoreSaveAndLink(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.SavePrompt(ctx, SavePromptParams{Text: "a cat", NegativeText: "blurry"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	saved, ok := s.Prompt(id)
	require.True(t, ok)
	assert.Equal(t, "a cat", saved.Text)

	require.NoError(t, s.LinkArtifact(ctx, id, "out/img1.png", map[string]any{"seed": 42}))
	assert.Equal(t, []string{"out/img1.png"}, s.Links(id))
}

func TestMemoryStoreLinkIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.SavePrompt(ctx, SavePromptParams{Text: "a cat"})
	require.NoError(t, err)

	require.NoError(t, s.LinkArtifact(ctx, id, "out/img1.png", nil))
	require.NoError(t, s.LinkArtifact(ctx, id, "out/img1.png", map[string]any{"retry": true}))

	assert.Equal(t, 1, s.LinkCount())
}

func TestSavePromptHonorsExplicitHash(t *testing.T) {
	s := NewMemoryStore()
	id, err := s.SavePrompt(context.Background(), SavePromptParams{Text: "a cat", Hash: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "prompt:abc", promptKey("abc"))
	assert.Equal(t, "prompt:abc:artifacts", linkKey("abc"))
}
