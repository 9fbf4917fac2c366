package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/prompttrace/internal/ctxlog"
	"github.com/vk/prompttrace/internal/host"
	"github.com/vk/prompttrace/internal/store"
)

// DefaultStaleness is the age beyond which a record is eligible for
// eviction and counts as stale for new-round detection.
const DefaultStaleness = 60 * time.Second

// RegisterParams carries one prompt registration.
type RegisterParams struct {
	NodeID       string
	ExecutionKey string
	PositiveText string
	NegativeText string
	Snapshot     host.PromptGraph
	Metadata     map[string]any
}

// Registry is the thread-safe store of live prompt records. One mutex
// guards every operation for its full duration; calls are sub-millisecond
// in-memory work, so the simplicity beats the lost throughput.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	// connections holds edge hints announced outside the workflow
	// snapshot, keyed by producing node id.
	connections map[string]map[string]struct{}

	store     store.Store
	staleness time.Duration
	now       func() time.Time

	counters counters
}

// New creates an empty registry backed by the given durable store.
func New(st store.Store) *Registry {
	return &Registry{
		records:     make(map[string]*Record),
		connections: make(map[string]map[string]struct{}),
		store:       st,
		staleness:   DefaultStaleness,
		now:         time.Now,
	}
}

// SetStaleness overrides the record age driving eviction and new-round
// wipes. Non-positive values are ignored.
func (g *Registry) SetStaleness(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	g.staleness = d
	g.mu.Unlock()
}

// Register inserts a record for the given execution key and returns a
// fresh execution id for diagnostic correlation.
//
// If the key is unseen and every existing record is already stale, the
// registration is treated as the start of a new execution round and all
// prior records are wiped first. A registration under an existing key
// always overwrites it (last write wins; a racing pair of registrations
// for one key is not an error).
func (g *Registry) Register(ctx context.Context, params RegisterParams) string {
	logger := ctxlog.FromContext(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if _, seen := g.records[params.ExecutionKey]; !seen && len(g.records) > 0 {
		if g.allStaleLocked(now) {
			logger.Info("new execution round detected, clearing stale records",
				"cleared", len(g.records), "execution_key", params.ExecutionKey)
			g.records = make(map[string]*Record)
		}
	}

	rec := &Record{
		NodeID:           params.NodeID,
		ExecutionKey:     params.ExecutionKey,
		ExecutionID:      uuid.NewString(),
		PositiveText:     params.PositiveText,
		NegativeText:     params.NegativeText,
		Snapshot:         params.Snapshot,
		Metadata:         make(map[string]any, len(params.Metadata)),
		CreatedAt:        now,
		ConnectedNodeIDs: make(map[string]struct{}),
		Confidence:       1.0,
	}
	for k, v := range params.Metadata {
		rec.Metadata[k] = v
	}
	// Connection hints announced before this registration still apply.
	for to := range g.connections[params.NodeID] {
		rec.ConnectedNodeIDs[to] = struct{}{}
	}

	g.records[params.ExecutionKey] = rec
	g.counters.totalTracked++

	logger.Debug("prompt registered",
		"node_id", params.NodeID,
		"execution_key", params.ExecutionKey,
		"execution_id", rec.ExecutionID)
	return rec.ExecutionID
}

// allStaleLocked reports whether every live record is older than the
// staleness threshold. Caller holds the lock.
func (g *Registry) allStaleLocked(now time.Time) bool {
	for _, rec := range g.records {
		if now.Sub(rec.CreatedAt) <= g.staleness {
			return false
		}
	}
	return true
}

// RegisterConnection records an edge hint from a producing node to a
// downstream node and updates every matching live record.
func (g *Registry) RegisterConnection(fromID, toID string) {
	if fromID == "" || toID == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connections[fromID] == nil {
		g.connections[fromID] = make(map[string]struct{})
	}
	g.connections[fromID][toID] = struct{}{}

	for _, rec := range g.records {
		if rec.NodeID == fromID {
			rec.ConnectedNodeIDs[toID] = struct{}{}
		}
	}
}

// Lookup returns a copy of the record registered under the execution key.
// This is the fast, preferred attribution path.
func (g *Registry) Lookup(executionKey string) (*Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[executionKey]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// LookupByProducer returns a copy of the most recently created record
// whose producing node matches. Fallback for save events that only know
// the logical producer id.
func (g *Registry) LookupByProducer(nodeID string) (*Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var best *Record
	for _, rec := range g.records {
		if rec.NodeID != nodeID {
			continue
		}
		if best == nil || rec.CreatedAt.After(best.CreatedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil, false
	}
	return best.clone(), true
}

// SetConfidence updates the stored confidence of a live record. Missing
// keys are ignored (the record may have been evicted since resolution).
func (g *Registry) SetConfidence(executionKey string, confidence float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec, ok := g.records[executionKey]; ok {
		rec.Confidence = confidence
	}
}

// RecordArtifact appends an artifact to the record's produced list,
// merges the metadata, and hands the pair to the durable store. Runs on
// the interceptor's background worker; the store call happens after the
// lock is released.
//
// When the record lacks a durable prompt id in its metadata, there is
// nothing to link to; the artifact is logged and dropped.
func (g *Registry) RecordArtifact(ctx context.Context, executionKey, artifactPath string, metadata map[string]any) error {
	logger := ctxlog.FromContext(ctx)

	g.mu.Lock()
	rec, ok := g.records[executionKey]
	if !ok {
		g.mu.Unlock()
		g.CountFailure()
		logger.Warn("artifact for unknown execution key, dropping",
			"execution_key", executionKey, "artifact", artifactPath)
		return nil
	}
	rec.ProducedArtifacts = append(rec.ProducedArtifacts, artifactPath)
	for k, v := range metadata {
		rec.Metadata[k] = v
	}
	promptID, _ := rec.Metadata[MetaPromptID].(string)
	linkMeta := make(map[string]any, len(rec.Metadata))
	for k, v := range rec.Metadata {
		linkMeta[k] = v
	}
	g.mu.Unlock()

	if promptID == "" {
		g.CountFailure()
		logger.Warn("record has no durable prompt id, artifact stays unlinked",
			"execution_key", executionKey, "artifact", artifactPath)
		return nil
	}

	if err := g.store.LinkArtifact(ctx, promptID, artifactPath, linkMeta); err != nil {
		g.CountFailure()
		logger.Error("durable artifact link failed",
			"prompt_id", promptID, "artifact", artifactPath, "error", err)
		return err
	}
	g.CountSuccess()
	logger.Debug("artifact linked", "prompt_id", promptID, "artifact", artifactPath)
	return nil
}

// EvictStale removes all records older than maxAge and returns how many
// were removed. Intended for a low-priority periodic loop; skipping a
// pass is non-fatal.
func (g *Registry) EvictStale(maxAge time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if maxAge <= 0 {
		maxAge = g.staleness
	}

	now := g.now()
	removed := 0
	for key, rec := range g.records {
		if now.Sub(rec.CreatedAt) > maxAge {
			delete(g.records, key)
			removed++
		}
	}
	return removed
}

// LiveRecords returns copies of every live record.
func (g *Registry) LiveRecords() []*Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	records := make([]*Record, 0, len(g.records))
	for _, rec := range g.records {
		records = append(records, rec.clone())
	}
	return records
}

// LiveKeys returns the execution keys of all live records, for post-hoc
// attribution-miss diagnostics.
func (g *Registry) LiveKeys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]string, 0, len(g.records))
	for key := range g.records {
		keys = append(keys, key)
	}
	return keys
}

// ActiveCount returns the number of live records.
func (g *Registry) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// Clear drops every live record and connection hint.
func (g *Registry) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = make(map[string]*Record)
	g.connections = make(map[string]map[string]struct{})
}
