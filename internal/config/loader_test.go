package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompttrace.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	model, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, model.Tracker.Staleness)
	assert.Equal(t, "json", model.Logging.Format)
	assert.Nil(t, model.HostEvents)
	assert.Empty(t, model.Storage.RedisURL)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
tracker {
  staleness_seconds   = 90
  maintenance_seconds = 15
  max_path_depth      = 10
  rendezvous_seconds  = 60
}

storage {
  redis_url = "redis://localhost:6379/2"
}

host_events {
  url       = "http://127.0.0.1:8188"
  namespace = "/events"
}

logging {
  level  = "debug"
  format = "text"
}
`)

	model, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, model.Tracker.Staleness)
	assert.Equal(t, 15*time.Second, model.Tracker.MaintenanceInterval)
	assert.Equal(t, 10, model.Tracker.MaxPathDepth)
	assert.Equal(t, 60*time.Second, model.Tracker.RendezvousTTL)
	assert.Equal(t, "redis://localhost:6379/2", model.Storage.RedisURL)
	require.NotNil(t, model.HostEvents)
	assert.Equal(t, "/events", model.HostEvents.Namespace)
	assert.Equal(t, "debug", model.Logging.Level)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
tracker {
  staleness_seconds = 120
}
`)

	model, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, model.Tracker.Staleness)
	assert.Equal(t, 30*time.Second, model.Tracker.MaintenanceInterval)
	assert.Equal(t, 20, model.Tracker.MaxPathDepth)
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("PROMPTTRACE_TEST_REDIS", "redis://envhost:6379")
	path := writeConfig(t, `
storage {
  redis_url = env.PROMPTTRACE_TEST_REDIS
}
`)

	model, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "redis://envhost:6379", model.Storage.RedisURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
logging {
  format = "yaml"
}
`)
	_, err := Load(context.Background(), path)
	assert.Error(t, err)
}

func TestLoadRejectsBadSyntax(t *testing.T) {
	path := writeConfig(t, `tracker {`)
	_, err := Load(context.Background(), path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	model := Default()
	require.NoError(t, model.Validate())

	model.Tracker.Staleness = 0
	assert.Error(t, model.Validate())

	model = Default()
	model.HostEvents = &HostEvents{}
	assert.Error(t, model.Validate())
}
