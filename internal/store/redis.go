package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	promptKeyPrefix = "prompt:"
	linkKeySuffix   = ":artifacts"

	connectTimeout = 5 * time.Second
)

// RedisStore persists prompts and artifact links in Redis. Links live in
// a per-prompt hash keyed by artifact path, which makes LinkArtifact a
// natural upsert.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis endpoint described by url
// (redis://host:port/db form) and verifies the connection.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func promptKey(id string) string {
	return promptKeyPrefix + id
}

func linkKey(id string) string {
	return promptKeyPrefix + id + linkKeySuffix
}

// SavePrompt writes the prompt under its hash-derived id. Re-saving the
// same prompt overwrites the same key, so the id is stable across runs.
func (s *RedisStore) SavePrompt(ctx context.Context, params SavePromptParams) (string, error) {
	id := params.Hash
	if id == "" {
		id = PromptHash(params.Text, params.NegativeText)
	}

	fields := map[string]any{
		"text":          params.Text,
		"negative_text": params.NegativeText,
		"category":      params.Category,
		"tags":          strings.Join(params.Tags, ","),
	}
	if err := s.client.HSet(ctx, promptKey(id), fields).Err(); err != nil {
		return "", fmt.Errorf("failed to save prompt %s: %w", id, err)
	}
	return id, nil
}

// LinkArtifact stores the artifact path and its metadata in the prompt's
// artifact hash. Linking the same pair twice rewrites the same field.
func (s *RedisStore) LinkArtifact(ctx context.Context, promptID, artifactPath string, metadata map[string]any) error {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal link metadata: %w", err)
	}
	if err := s.client.HSet(ctx, linkKey(promptID), artifactPath, payload).Err(); err != nil {
		return fmt.Errorf("failed to link artifact %s to prompt %s: %w", artifactPath, promptID, err)
	}
	return nil
}
