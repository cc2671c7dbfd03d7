package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/reactive"
)

var (
	numberTy   = graph.NewEntityTypeID("test", "number")
	otherTy    = graph.NewEntityTypeID("test", "other")
	wireTy     = graph.NewRelationTypeID("test", "wire")
	gateTy     = graph.NewComponentTypeID("test", "gate")
	doubleBT   = behaviour.NewBehaviourTypeID("test", "double")
	negateBT   = behaviour.NewBehaviourTypeID("test", "negate")
	copyBT     = behaviour.NewBehaviourTypeID("test", "copy")
	doubleTy   = behaviour.NewEntityBehaviourTypeID(numberTy, doubleBT)
	doubleTy2  = behaviour.NewEntityBehaviourTypeID(otherTy, doubleBT)
	negateTy   = behaviour.NewComponentBehaviourTypeID(gateTy, negateBT)
	copyWireTy = behaviour.NewRelationBehaviourTypeID(wireTy, copyBT)
)

var errConnect = errors.New("connect refused")

// doubleTransitions keeps out = 2*in.
type doubleTransitions struct {
	behaviour.NoopTransitions
	instance  reactive.Instance
	observers *behaviour.ObserverContainer
	fail      bool
}

func (t *doubleTransitions) Validate() error {
	return behaviour.PropertyValidator{Instance: t.instance, Properties: []string{"in", "out"}}.Validate()
}

func (t *doubleTransitions) Connect() error {
	if t.fail {
		return errConnect
	}
	_, err := t.observers.Observe("in", func(v any) {
		n, _ := v.(float64)
		_ = t.instance.Set("out", n*2)
	})
	return err
}

// doubleFactory fails to connect on instances named "bad".
func doubleFactory(ty behaviour.TypeKey) behaviour.Factory {
	return behaviour.NewFactory(ty, func(instance reactive.Instance, observers *behaviour.ObserverContainer) (behaviour.Transitions, error) {
		name := ""
		if e, ok := instance.(*reactive.Entity); ok {
			name = e.Name()
		}
		return &doubleTransitions{instance: instance, observers: observers, fail: name == "bad"}, nil
	})
}

// negateTransitions keeps out = !in.
type negateTransitions struct {
	behaviour.NoopTransitions
	instance  reactive.Instance
	observers *behaviour.ObserverContainer
}

func (t *negateTransitions) Connect() error {
	_, err := t.observers.Observe("in", func(v any) {
		b, _ := v.(bool)
		_ = t.instance.Set("out", !b)
	})
	return err
}

func negateFactory(ty behaviour.TypeKey) behaviour.Factory {
	return behaviour.NewFactory(ty, func(instance reactive.Instance, observers *behaviour.ObserverContainer) (behaviour.Transitions, error) {
		return &negateTransitions{instance: instance, observers: observers}, nil
	})
}

// copyTransitions copies the outbound "out" to the inbound "in".
type copyTransitions struct {
	behaviour.NoopTransitions
	relation  *reactive.Relation
	observers *behaviour.ObserverContainer
}

func (t *copyTransitions) Connect() error {
	out, err := t.relation.Outbound()
	if err != nil {
		return err
	}
	in, err := t.relation.Inbound()
	if err != nil {
		return err
	}
	_, err = t.observers.ObserveOn(out, "out", func(v any) { _ = in.Set("in", v) })
	return err
}

func copyFactory(ty behaviour.TypeKey) behaviour.Factory {
	return behaviour.NewFactory(ty, func(instance reactive.Instance, observers *behaviour.ObserverContainer) (behaviour.Transitions, error) {
		r, err := behaviour.AsRelation(instance)
		if err != nil {
			return nil, err
		}
		return &copyTransitions{relation: r, observers: observers}, nil
	})
}

func newNumber(t *testing.T, ty graph.EntityTypeID, name string) *reactive.Entity {
	t.Helper()
	e, err := reactive.NewEntity(ty,
		reactive.WithName(name),
		reactive.WithProperty("in", graph.Mutable, float64(0)),
		reactive.WithProperty("out", graph.Mutable, float64(0)))
	require.NoError(t, err)
	return e
}

// assertConsistent checks that each instance carries the marker exactly
// when the manager holds a live behaviour for it.
func assertConsistent[K Key, I reactive.Instance](t *testing.T, m *Manager[K, I], ty K, instances []I) {
	t.Helper()
	for _, inst := range instances {
		b, live := m.Get(inst, ty)
		marked := inst.BehavesAs(ty.Behaviour().NamespacedType)
		require.Equal(t, live, marked, "instance %s behaviour %s", inst.ID(), ty)
		if live {
			require.Equal(t, behaviour.StateConnected, b.State())
		}
	}
}

type logRecord struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	l.records = append(l.records, logRecord{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.level == level && r.msg == msg {
			n++
		}
	}
	return n
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetrics struct {
	mu       sync.Mutex
	calls    []metricsCall
	attached map[string]int
	detached map[string]int
	failed   map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{attached: map[string]int{}, detached: map[string]int{}, failed: map[string]int{}}
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
	c.mu.Unlock()
}

func (c *captureMetrics) BehaviourAttached(family string, n int) {
	c.mu.Lock()
	c.attached[family] += n
	c.mu.Unlock()
}

func (c *captureMetrics) BehaviourDetached(family string, n int) {
	c.mu.Lock()
	c.detached[family] += n
	c.mu.Unlock()
}

func (c *captureMetrics) AttachFailed(family string, n int) {
	c.mu.Lock()
	c.failed[family] += n
	c.mu.Unlock()
}

func (c *captureMetrics) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	mu    sync.Mutex
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.ended {
		if r.op == op && (r.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
	s.tracer.mu.Unlock()
}

type captureAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

func (c *captureAudit) has(op string, status AuditStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Operation == op && e.Status == status {
			return true
		}
	}
	return false
}

func names(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return out
}
