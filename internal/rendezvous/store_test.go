package rendezvous

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := New(ttl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestPutGetTake(t *testing.T) {
	s, _ := newTestStore(0)

	s.Put("exec-1", "ugly, blurry")

	v, ok := s.Get("exec-1")
	require.True(t, ok)
	assert.Equal(t, "ugly, blurry", v)

	// Get does not consume; Take does.
	v, ok = s.Take("exec-1")
	require.True(t, ok)
	assert.Equal(t, "ugly, blurry", v)

	_, ok = s.Take("exec-1")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	s, now := newTestStore(10 * time.Second)

	s.Put("exec-1", "stash")
	*now = now.Add(11 * time.Second)

	_, ok := s.Get("exec-1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "expired entry dropped on access")
}

func TestPutRestartsTTL(t *testing.T) {
	s, now := newTestStore(10 * time.Second)

	s.Put("exec-1", "first")
	*now = now.Add(8 * time.Second)
	s.Put("exec-1", "second")
	*now = now.Add(8 * time.Second)

	v, ok := s.Get("exec-1")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestSweep(t *testing.T) {
	s, now := newTestStore(10 * time.Second)

	s.Put("old-1", 1)
	s.Put("old-2", 2)
	*now = now.Add(11 * time.Second)
	s.Put("fresh", 3)

	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 1, s.Len())
}
