package tracking

import "sync/atomic"

// counters aggregates attribution bookkeeping. Atomics keep them safe to
// bump from code paths that do not hold the registry lock.
type counters struct {
	totalTracked       int64
	successfulPairs    atomic.Int64
	failedPairs        atomic.Int64
	multiNodeWorkflows atomic.Int64
	// confidence running average, scaled by 1e6 to stay in integer land.
	confidenceSum   atomic.Int64
	confidenceCount atomic.Int64
}

const confidenceScale = 1e6

// Metrics is a read-only snapshot of the registry's counters.
type Metrics struct {
	TotalTracked       int64
	SuccessfulPairs    int64
	FailedPairs        int64
	MultiNodeWorkflows int64
	AvgConfidence      float64
	AccuracyRate       float64
	ActivePrompts      int
}

// CountSuccess records one durably linked prompt/artifact pair.
func (g *Registry) CountSuccess() {
	g.counters.successfulPairs.Add(1)
}

// CountFailure records one artifact that could not be attributed or linked.
func (g *Registry) CountFailure() {
	g.counters.failedPairs.Add(1)
}

// NoteMultiProducer records an attribution that saw more than one prompt
// source for a single save target.
func (g *Registry) NoteMultiProducer() {
	g.counters.multiNodeWorkflows.Add(1)
}

// NoteResolution feeds one resolution's confidence into the running average.
func (g *Registry) NoteResolution(confidence float64) {
	g.counters.confidenceSum.Add(int64(confidence * confidenceScale))
	g.counters.confidenceCount.Add(1)
}

// Metrics returns a snapshot of all counters plus the live record count.
func (g *Registry) Metrics() Metrics {
	g.mu.Lock()
	total := g.counters.totalTracked
	active := len(g.records)
	g.mu.Unlock()

	m := Metrics{
		TotalTracked:       total,
		SuccessfulPairs:    g.counters.successfulPairs.Load(),
		FailedPairs:        g.counters.failedPairs.Load(),
		MultiNodeWorkflows: g.counters.multiNodeWorkflows.Load(),
		ActivePrompts:      active,
	}
	if n := g.counters.confidenceCount.Load(); n > 0 {
		m.AvgConfidence = float64(g.counters.confidenceSum.Load()) / confidenceScale / float64(n)
	}
	if attempts := m.SuccessfulPairs + m.FailedPairs; attempts > 0 {
		m.AccuracyRate = float64(m.SuccessfulPairs) / float64(attempts)
	}
	return m
}
