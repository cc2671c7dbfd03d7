package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes operation timings and live behaviour
// counts via expvar, for processes that run without a Prometheus scrape.
type ExpvarMetricsRecorder struct {
	name string

	mu         sync.Mutex
	durations  map[string]float64
	results    map[string]map[string]int64
	behaviours map[string]map[string]int64
}

// ExpvarMetricsSnapshot is a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	Behaviours  map[string]map[string]int64 `json:"behaviours"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated name when empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("reactivegraph_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:       name,
		durations:  make(map[string]float64),
		results:    make(map[string]map[string]int64),
		behaviours: make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot returns a copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}
	return ExpvarMetricsSnapshot{
		DurationsMS: durations,
		Results:     copyCounts(r.results),
		Behaviours:  copyCounts(r.behaviours),
		RecordedAt:  time.Now().UTC(),
	}
}

func copyCounts(in map[string]map[string]int64) map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(in))
	for k, counts := range in {
		cpy := make(map[string]int64, len(counts))
		for label, n := range counts {
			cpy[label] = n
		}
		out[k] = cpy
	}
	return out
}

func (r *ExpvarMetricsRecorder) bump(dst map[string]map[string]int64, key, label string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := dst[key]; !ok {
		dst[key] = make(map[string]int64, 4)
	}
	dst[key][label] += n
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.mu.Lock()
	r.durations[operation] += float64(duration) / float64(time.Millisecond)
	r.mu.Unlock()
	r.bump(r.results, operation, status, 1)
}

// BehaviourAttached implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) BehaviourAttached(family string, n int) {
	r.bump(r.behaviours, family, "attached", int64(n))
	r.bump(r.behaviours, family, "live", int64(n))
}

// BehaviourDetached implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) BehaviourDetached(family string, n int) {
	r.bump(r.behaviours, family, "detached", int64(n))
	r.bump(r.behaviours, family, "live", -int64(n))
}

// AttachFailed implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) AttachFailed(family string, n int) {
	r.bump(r.behaviours, family, "failed", int64(n))
}

// JSONTraceEntry is a span serialized by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes spans as JSON lines and retains them for
// inspection. graphctl uses it for --trace output.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer writing to w; a nil writer only
// retains entries.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
	s.tracer.mu.Unlock()
}

var (
	_ MetricsRecorder = (*ExpvarMetricsRecorder)(nil)
	_ Tracer          = (*JSONTraceTracer)(nil)
)
