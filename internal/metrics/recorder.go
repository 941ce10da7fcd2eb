package metrics

import (
	"sync"
	"time"
)

// DefaultCapacity is how many calls a Recorder keeps.
const DefaultCapacity = 1000

// Recorder is a bounded, concurrency-safe ring of recent metrics.
type Recorder struct {
	mu    sync.RWMutex
	ring  []Metric
	next  int
	full  bool
	total int64
}

// NewRecorder creates a recorder holding up to capacity metrics.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{ring: make([]Metric, capacity)}
}

// Record stores a metric, evicting the oldest when full.
func (r *Recorder) Record(m Metric) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.TotalTokens == 0 {
		m.TotalTokens = m.PromptTokens + m.CompletionTokens
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ring[r.next] = m
	r.next = (r.next + 1) % len(r.ring)
	if r.next == 0 {
		r.full = true
	}
	r.total++
}

// Total is the number of metrics ever recorded, including evicted ones.
func (r *Recorder) Total() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// List returns metrics matching f, newest first. A limit of 0 means all.
func (r *Recorder) List(f Filter, limit int) []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.ring)
	}

	out := make([]Metric, 0)
	for i := 1; i <= n; i++ {
		m := r.ring[(r.next-i+len(r.ring))%len(r.ring)]
		if !f.matches(m) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
