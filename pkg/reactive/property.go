package reactive

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"reactivegraph/pkg/graph"
)

// Observer receives every value pushed through a property.
type Observer func(value any)

// HandleID identifies one observer registration on a property.
type HandleID uuid.UUID

// NewHandleID returns a random handle.
func NewHandleID() HandleID {
	return HandleID(uuid.New())
}

func (h HandleID) String() string {
	return uuid.UUID(h).String()
}

type observerEntry struct {
	handle HandleID
	fn     Observer
}

// Property is an observable named cell holding a JSON value.
//
// Observers run synchronously on the caller's goroutine, in registration
// order, outside the property lock, so an observer may call Set on this or
// any other property. Cascades unwind on the same stack; there is no value
// deduplication. A positive propagation limit bounds the nesting depth of
// dispatch on a single property within one cascade; concurrent cascades on
// other goroutines are counted separately.
type Property struct {
	owner string
	name  string

	mu         sync.RWMutex
	mutability graph.Mutability
	value      any
	observers  []observerEntry

	limit atomic.Int32

	depthMu sync.Mutex
	depth   map[uint64]int32 // goroutine id -> nested dispatch count
}

// NewProperty constructs a detached property. Instances create their own
// properties through AddProperty.
func NewProperty(owner, name string, mutability graph.Mutability, value any) *Property {
	if mutability == "" {
		mutability = graph.Mutable
	}
	return &Property{
		owner:      owner,
		name:       name,
		mutability: mutability,
		value:      Clone(value),
	}
}

// Owner returns the id of the owning instance.
func (p *Property) Owner() string { return p.owner }

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// Mutability returns the mutability flag.
func (p *Property) Mutability() graph.Mutability {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mutability
}

// SetMutability changes the mutability flag.
func (p *Property) SetMutability(m graph.Mutability) {
	p.mu.Lock()
	p.mutability = m
	p.mu.Unlock()
}

// SetPropagationLimit bounds nested dispatch depth; 0 disables the guard.
func (p *Property) SetPropagationLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	if limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	p.limit.Store(int32(limit))
}

// Get returns a deep copy of the current value.
func (p *Property) Get() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Clone(p.value)
}

// Set stores the value and notifies every observer. Immutable properties
// reject the write with ErrImmutableProperty and keep their value.
func (p *Property) Set(value any) error {
	gid, err := p.checkDepth()
	if err != nil {
		return err
	}
	p.mu.Lock()
	if p.mutability == graph.Immutable {
		p.mu.Unlock()
		return fmt.Errorf("%s.%s: %w", p.owner, p.name, ErrImmutableProperty)
	}
	p.value = Clone(value)
	observers := p.snapshotLocked()
	p.mu.Unlock()
	return p.dispatch(gid, observers, value)
}

// SetNoPropagate stores the value without notifying observers.
func (p *Property) SetNoPropagate(value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mutability == graph.Immutable {
		return fmt.Errorf("%s.%s: %w", p.owner, p.name, ErrImmutableProperty)
	}
	p.value = Clone(value)
	return nil
}

// Send notifies observers with value without storing it.
func (p *Property) Send(value any) error {
	gid, err := p.checkDepth()
	if err != nil {
		return err
	}
	p.mu.RLock()
	observers := p.snapshotLocked()
	p.mu.RUnlock()
	return p.dispatch(gid, observers, value)
}

// Tick re-broadcasts the current value regardless of mutability.
func (p *Property) Tick() error {
	gid, err := p.checkDepth()
	if err != nil {
		return err
	}
	p.mu.RLock()
	value := p.value
	observers := p.snapshotLocked()
	p.mu.RUnlock()
	return p.dispatch(gid, observers, value)
}

// TickChecked re-broadcasts the current value only if the property is mutable.
func (p *Property) TickChecked() error {
	if p.Mutability() != graph.Mutable {
		return nil
	}
	return p.Tick()
}

// ObserveWithHandle registers fn under handle. Registering an existing
// handle replaces its observer in place.
func (p *Property) ObserveWithHandle(fn Observer, handle HandleID) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.observers {
		if p.observers[i].handle == handle {
			p.observers[i].fn = fn
			return
		}
	}
	p.observers = append(p.observers, observerEntry{handle: handle, fn: fn})
}

// RemoveObserver unsubscribes the observer registered under handle.
func (p *Property) RemoveObserver(handle HandleID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.observers {
		if p.observers[i].handle == handle {
			p.observers = append(p.observers[:i:i], p.observers[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveObservers unsubscribes every observer.
func (p *Property) RemoveObservers() {
	p.mu.Lock()
	p.observers = nil
	p.mu.Unlock()
}

// ObserverCount returns the number of registered observers.
func (p *Property) ObserverCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.observers)
}

// HasObserver reports whether handle is registered.
func (p *Property) HasObserver(handle HandleID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, o := range p.observers {
		if o.handle == handle {
			return true
		}
	}
	return false
}

func (p *Property) snapshotLocked() []observerEntry {
	if len(p.observers) == 0 {
		return nil
	}
	out := make([]observerEntry, len(p.observers))
	copy(out, p.observers)
	return out
}

// checkDepth returns the calling goroutine's id when the guard is enabled,
// or 0 when it is not.
func (p *Property) checkDepth() (uint64, error) {
	limit := p.limit.Load()
	if limit <= 0 {
		return 0, nil
	}
	gid := goroutineID()
	p.depthMu.Lock()
	d := p.depth[gid]
	p.depthMu.Unlock()
	if d >= limit {
		return gid, fmt.Errorf("%s.%s: %w (limit %d)", p.owner, p.name, ErrPropagationLimitExceeded, limit)
	}
	return gid, nil
}

func (p *Property) dispatch(gid uint64, observers []observerEntry, value any) error {
	if len(observers) == 0 {
		return nil
	}
	if gid != 0 {
		p.enter(gid)
		defer p.leave(gid)
	}
	for _, o := range observers {
		o.fn(Clone(value))
	}
	return nil
}

func (p *Property) enter(gid uint64) {
	p.depthMu.Lock()
	if p.depth == nil {
		p.depth = make(map[uint64]int32)
	}
	p.depth[gid]++
	p.depthMu.Unlock()
}

func (p *Property) leave(gid uint64) {
	p.depthMu.Lock()
	if p.depth[gid] <= 1 {
		delete(p.depth, gid)
	} else {
		p.depth[gid]--
	}
	p.depthMu.Unlock()
}

// AsBool returns the value as a bool.
func (p *Property) AsBool() (bool, bool) {
	b, ok := p.Get().(bool)
	return b, ok
}

// AsFloat64 returns the value as a float64.
func (p *Property) AsFloat64() (float64, bool) {
	return asFloat(p.Get())
}

// AsInt64 returns the value as an int64 when it is an integral number.
func (p *Property) AsInt64() (int64, bool) {
	f, ok := asFloat(p.Get())
	if !ok || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// AsString returns the value as a string.
func (p *Property) AsString() (string, bool) {
	s, ok := p.Get().(string)
	return s, ok
}

// AsArray returns the value as a JSON array.
func (p *Property) AsArray() ([]any, bool) {
	a, ok := p.Get().([]any)
	return a, ok
}

// AsObject returns the value as a JSON object.
func (p *Property) AsObject() (map[string]any, bool) {
	o, ok := p.Get().(map[string]any)
	return o, ok
}
