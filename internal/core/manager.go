package core

import (
	"errors"
	"fmt"
	"hash/fnv"
	"reflect"
	"sort"
	"sync"

	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/reactive"
)

// AttachFailure describes one instance a bulk attach could not serve.
type AttachFailure struct {
	InstanceID string
	Ty         string
	Err        error
}

// AttachResult summarizes a bulk attach: retrofit on registration or
// bootstrap of a new instance.
type AttachResult struct {
	Attached int
	Skipped  []AttachFailure
}

// Err joins the failures, or returns nil when every attach succeeded.
func (r AttachResult) Err() error {
	if len(r.Skipped) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Skipped))
	for _, f := range r.Skipped {
		errs = append(errs, fmt.Errorf("%s on %s: %w", f.Ty, f.InstanceID, f.Err))
	}
	return errors.Join(errs...)
}

func (r *AttachResult) merge(other AttachResult) {
	r.Attached += other.Attached
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// Matcher reports whether a behaviour key applies to an instance.
type Matcher[K Key, I reactive.Instance] func(ty K, instance I) bool

const lockStripes = 64

type liveKey struct {
	instance  string
	behaviour behaviour.BehaviourTypeID
}

type liveEntry[K Key, I reactive.Instance] struct {
	key       K
	instance  I
	behaviour *behaviour.Behaviour
}

// Manager owns the live behaviours of one family. An instance carries a
// behaviour marker exactly while the manager holds a live state machine for
// that instance and behaviour type; both change together under the
// instance's lock stripe.
type Manager[K Key, I reactive.Instance] struct {
	registry  *Registry[K]
	matches   Matcher[K, I]
	instances func() []I
	exists    func(I) bool

	logger  Logger
	metrics MetricsRecorder

	stripes [lockStripes]sync.Mutex
	live    sync.Map // liveKey -> *liveEntry[K, I]
}

// NewManager constructs a manager over a registry. instances lists the
// candidates for retrofit when a factory is registered.
func NewManager[K Key, I reactive.Instance](registry *Registry[K], matches Matcher[K, I], instances func() []I) *Manager[K, I] {
	return &Manager[K, I]{
		registry:  registry,
		matches:   matches,
		instances: instances,
		logger:    noopLogger{},
		metrics:   noopMetrics{},
	}
}

func (m *Manager[K, I]) observe(logger Logger, metrics MetricsRecorder) {
	if logger != nil {
		m.logger = logger
	}
	if metrics != nil {
		m.metrics = metrics
	}
}

// track sets the liveness check run after a behaviour is stored. An
// instance removed from its container while an attach was in flight loses
// the behaviour again.
func (m *Manager[K, I]) track(exists func(I) bool) {
	m.exists = exists
}

// Registry returns the factory registry.
func (m *Manager[K, I]) Registry() *Registry[K] { return m.registry }

// Family returns the behaviour family.
func (m *Manager[K, I]) Family() behaviour.Family { return m.registry.Family() }

// Register stores the factory and attaches it to every existing matching
// instance. Per-instance failures are reported in the result and do not
// undo the registration.
func (m *Manager[K, I]) Register(ty K, factory behaviour.Factory) (AttachResult, error) {
	if err := m.registry.Register(ty, factory); err != nil {
		return AttachResult{}, err
	}
	return m.retrofit(ty, factory), nil
}

// RegisterAll registers a batch of factories. When any key is already
// registered nothing is registered.
func (m *Manager[K, I]) RegisterAll(factories map[K]behaviour.Factory) (AttachResult, error) {
	keys := make([]K, 0, len(factories))
	for k := range factories {
		if m.registry.Has(k) {
			return AttachResult{}, fmt.Errorf("%s behaviour %s: %w", m.Family(), k, ErrBehaviourAlreadyRegistered)
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for i, k := range keys {
		if err := m.registry.Register(k, factories[k]); err != nil {
			for _, done := range keys[:i] {
				m.registry.Unregister(done)
			}
			return AttachResult{}, err
		}
	}
	var res AttachResult
	for _, k := range keys {
		res.merge(m.retrofit(k, factories[k]))
	}
	return res, nil
}

// Unregister removes the factory and detaches every behaviour it created.
// It returns the number of detached behaviours.
func (m *Manager[K, I]) Unregister(ty K) int {
	m.registry.Unregister(ty)
	return m.RemoveBehavioursByKey(ty)
}

// UnregisterAll unregisters each key.
func (m *Manager[K, I]) UnregisterAll(tys ...K) int {
	n := 0
	for _, ty := range tys {
		n += m.Unregister(ty)
	}
	return n
}

// AddBehaviours attaches every registered factory that matches a new
// instance.
func (m *Manager[K, I]) AddBehaviours(instance I) AttachResult {
	var res AttachResult
	if instanceMissing(instance) {
		return res
	}
	for _, ty := range m.registry.GetAll() {
		if !m.matches(ty, instance) {
			continue
		}
		factory, ok := m.registry.Get(ty)
		if !ok {
			continue
		}
		m.tally(&res, instance.ID(), ty, m.attach(instance, ty, factory))
	}
	m.report("bootstrap", res)
	return res
}

// AddBehaviour attaches one registered behaviour to an instance.
func (m *Manager[K, I]) AddBehaviour(instance I, ty K) error {
	factory, ok := m.registry.Get(ty)
	if !ok {
		return fmt.Errorf("%s behaviour %s: %w", m.Family(), ty, ErrBehaviourNotRegistered)
	}
	return m.attach(instance, ty, factory)
}

// RemoveBehaviour detaches one behaviour from an instance.
func (m *Manager[K, I]) RemoveBehaviour(instance I, ty K) error {
	if instanceMissing(instance) {
		return fmt.Errorf("%s: %w", ty, ErrBehaviourNotFound)
	}
	lk := liveKey{instance: instance.ID(), behaviour: ty.Behaviour()}
	v, ok := m.live.Load(lk)
	if !ok || v.(*liveEntry[K, I]).key != ty || !m.detach(lk, v.(*liveEntry[K, I])) {
		return fmt.Errorf("%s on %s: %w", ty, lk.instance, ErrBehaviourNotFound)
	}
	return nil
}

// RemoveBehaviours detaches every behaviour of the family from an instance.
func (m *Manager[K, I]) RemoveBehaviours(instance I) int {
	if instanceMissing(instance) {
		return 0
	}
	return m.RemoveBehavioursByID(instance.ID())
}

// RemoveBehavioursByID detaches every behaviour bound to the instance id.
// It works after the instance has left the arena.
func (m *Manager[K, I]) RemoveBehavioursByID(id string) int {
	return m.removeWhere(func(lk liveKey, _ *liveEntry[K, I]) bool { return lk.instance == id })
}

// RemoveBehavioursByKey detaches every behaviour created under ty.
func (m *Manager[K, I]) RemoveBehavioursByKey(ty K) int {
	return m.removeWhere(func(_ liveKey, e *liveEntry[K, I]) bool { return e.key == ty })
}

// RemoveBehavioursByBehaviour detaches every behaviour of the bare type bt
// across all owners.
func (m *Manager[K, I]) RemoveBehavioursByBehaviour(bt behaviour.BehaviourTypeID) int {
	return m.removeWhere(func(lk liveKey, _ *liveEntry[K, I]) bool { return lk.behaviour == bt })
}

// Has reports whether the behaviour is live on the instance.
func (m *Manager[K, I]) Has(instance I, ty K) bool {
	_, ok := m.Get(instance, ty)
	return ok
}

// Get returns the live state machine for a behaviour on an instance.
func (m *Manager[K, I]) Get(instance I, ty K) (*behaviour.Behaviour, bool) {
	if instanceMissing(instance) {
		return nil, false
	}
	v, ok := m.live.Load(liveKey{instance: instance.ID(), behaviour: ty.Behaviour()})
	if !ok {
		return nil, false
	}
	e := v.(*liveEntry[K, I])
	if e.key != ty {
		return nil, false
	}
	return e.behaviour, true
}

// GetAll returns the keys live on an instance.
func (m *Manager[K, I]) GetAll(instance I) []K {
	if instanceMissing(instance) {
		return nil
	}
	id := instance.ID()
	var out []K
	m.live.Range(func(k, v any) bool {
		if k.(liveKey).instance == id {
			out = append(out, v.(*liveEntry[K, I]).key)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// GetInstancesByBehaviour returns the instances on which ty is live.
func (m *Manager[K, I]) GetInstancesByBehaviour(ty K) []I {
	var out []I
	m.live.Range(func(_, v any) bool {
		e := v.(*liveEntry[K, I])
		if e.key == ty {
			out = append(out, e.instance)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Connect connects a live behaviour.
func (m *Manager[K, I]) Connect(instance I, ty K) error {
	return m.transition(instance, ty, (*behaviour.Behaviour).Connect)
}

// Disconnect disconnects a live behaviour. The behaviour stays attached and
// its marker stays on the instance.
func (m *Manager[K, I]) Disconnect(instance I, ty K) error {
	return m.transition(instance, ty, (*behaviour.Behaviour).Disconnect)
}

// Reconnect disconnects then connects a live behaviour.
func (m *Manager[K, I]) Reconnect(instance I, ty K) error {
	return m.transition(instance, ty, (*behaviour.Behaviour).Reconnect)
}

// Count returns the number of live behaviours.
func (m *Manager[K, I]) Count() int {
	n := 0
	m.live.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Shutdown detaches every live behaviour.
func (m *Manager[K, I]) Shutdown() int {
	return m.removeWhere(func(liveKey, *liveEntry[K, I]) bool { return true })
}

func (m *Manager[K, I]) transition(instance I, ty K, op func(*behaviour.Behaviour) error) error {
	b, ok := m.Get(instance, ty)
	if !ok {
		return fmt.Errorf("%s: %w", ty, ErrBehaviourNotFound)
	}
	return op(b)
}

func (m *Manager[K, I]) retrofit(ty K, factory behaviour.Factory) AttachResult {
	var res AttachResult
	if m.instances == nil {
		return res
	}
	for _, instance := range m.instances() {
		if instanceMissing(instance) || !m.matches(ty, instance) {
			continue
		}
		m.tally(&res, instance.ID(), ty, m.attach(instance, ty, factory))
	}
	m.report("retrofit", res)
	return res
}

// attach runs create, init and connect, then marks the instance and stores
// the state machine. On failure the partial behaviour is shut down and the
// instance is left untouched. The stripe lock is held throughout and is not
// reentrant; see behaviour.Transitions.
func (m *Manager[K, I]) attach(instance I, ty K, factory behaviour.Factory) error {
	if instanceMissing(instance) {
		return behaviour.NewCreationError(behaviour.ErrInstanceKindMismatch, ty, errors.New("instance cannot be nil"))
	}
	id := instance.ID()
	bt := ty.Behaviour()
	lk := liveKey{instance: id, behaviour: bt}

	mu := m.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if _, ok := m.live.Load(lk); ok || instance.BehavesAs(bt.NamespacedType) {
		return behaviour.NewCreationError(behaviour.ErrBehaviourAlreadyApplied, ty, nil)
	}
	b, err := factory.Create(instance)
	if err != nil {
		m.metrics.AttachFailed(string(m.Family()), 1)
		return err
	}
	if err := b.Init(); err != nil {
		_ = b.Shutdown()
		m.metrics.AttachFailed(string(m.Family()), 1)
		return behaviour.NewCreationError(behaviour.ErrBehaviourTransition, ty, err)
	}
	if err := b.Connect(); err != nil {
		_ = b.Shutdown()
		m.metrics.AttachFailed(string(m.Family()), 1)
		return behaviour.NewCreationError(behaviour.ErrBehaviourTransition, ty, err)
	}
	instance.AddBehaviour(bt.NamespacedType)
	m.live.Store(lk, &liveEntry[K, I]{key: ty, instance: instance, behaviour: b})

	// Unregister or instance deletion may have run between the factory
	// lookup and the store.
	if !m.registry.Has(ty) {
		m.live.Delete(lk)
		b.Detach()
		return fmt.Errorf("%s behaviour %s: %w", m.Family(), ty, ErrBehaviourNotRegistered)
	}
	if m.exists != nil && !m.exists(instance) {
		m.live.Delete(lk)
		b.Detach()
		return fmt.Errorf("%s behaviour %s on %s: %w", m.Family(), ty, id, reactive.ErrInstanceNotFound)
	}
	m.metrics.BehaviourAttached(string(m.Family()), 1)
	m.logger.Debug("behaviour attached", "family", m.Family(), "instance", id, "behaviour", ty.String())
	return nil
}

// detach removes the table entry, then tears the behaviour down, which also
// drops the marker. It reports false when another caller got there first.
func (m *Manager[K, I]) detach(lk liveKey, expected *liveEntry[K, I]) bool {
	mu := m.lockFor(lk.instance)
	mu.Lock()
	defer mu.Unlock()
	if !m.live.CompareAndDelete(lk, expected) {
		return false
	}
	expected.behaviour.Detach()
	m.metrics.BehaviourDetached(string(m.Family()), 1)
	m.logger.Debug("behaviour detached", "family", m.Family(), "instance", lk.instance, "behaviour", expected.key.String())
	return true
}

func (m *Manager[K, I]) removeWhere(keep func(liveKey, *liveEntry[K, I]) bool) int {
	type match struct {
		lk liveKey
		e  *liveEntry[K, I]
	}
	var matches []match
	m.live.Range(func(k, v any) bool {
		lk, e := k.(liveKey), v.(*liveEntry[K, I])
		if keep(lk, e) {
			matches = append(matches, match{lk: lk, e: e})
		}
		return true
	})
	n := 0
	for _, mt := range matches {
		if m.detach(mt.lk, mt.e) {
			n++
		}
	}
	return n
}

func (m *Manager[K, I]) tally(res *AttachResult, id string, ty K, err error) {
	switch {
	case err == nil:
		res.Attached++
	case errors.Is(err, behaviour.ErrBehaviourAlreadyApplied):
	default:
		res.Skipped = append(res.Skipped, AttachFailure{InstanceID: id, Ty: ty.String(), Err: err})
	}
}

func (m *Manager[K, I]) report(phase string, res AttachResult) {
	for _, f := range res.Skipped {
		m.logger.Warn("behaviour attach failed", "phase", phase, "family", m.Family(), "instance", f.InstanceID, "behaviour", f.Ty, "error", f.Err)
	}
}

func (m *Manager[K, I]) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &m.stripes[h.Sum32()%lockStripes]
}

func instanceMissing(instance reactive.Instance) bool {
	if instance == nil {
		return true
	}
	v := reflect.ValueOf(instance)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// ComponentManager adds component-scoped operations for the entity-component
// and relation-component families.
type ComponentManager[I reactive.Instance] struct {
	*Manager[behaviour.ComponentBehaviourTypeID, I]
}

// NewComponentManager constructs a component manager. A key applies to an
// instance when the instance carries the key's component.
func NewComponentManager[I reactive.Instance](registry *Registry[behaviour.ComponentBehaviourTypeID], instances func() []I) *ComponentManager[I] {
	var matches Matcher[behaviour.ComponentBehaviourTypeID, I] = func(ty behaviour.ComponentBehaviourTypeID, instance I) bool {
		return instance.IsA(ty.ComponentTy)
	}
	return &ComponentManager[I]{Manager: NewManager(registry, matches, instances)}
}

// AddBehavioursToComponent attaches the behaviours registered for a
// component that was just added to the instance.
func (m *ComponentManager[I]) AddBehavioursToComponent(instance I, component graph.ComponentTypeID) AttachResult {
	var res AttachResult
	if instanceMissing(instance) {
		return res
	}
	for _, ty := range m.registry.GetByOwner(component.NamespacedType) {
		factory, ok := m.registry.Get(ty)
		if !ok {
			continue
		}
		m.tally(&res, instance.ID(), ty, m.attach(instance, ty, factory))
	}
	m.report("component", res)
	return res
}

// RemoveBehavioursFromComponent detaches the behaviours an instance holds
// through one component.
func (m *ComponentManager[I]) RemoveBehavioursFromComponent(instance I, component graph.ComponentTypeID) int {
	if instanceMissing(instance) {
		return 0
	}
	id := instance.ID()
	return m.removeWhere(func(lk liveKey, e *liveEntry[behaviour.ComponentBehaviourTypeID, I]) bool {
		return lk.instance == id && e.key.ComponentTy == component
	})
}

// EntityBehaviourManager manages behaviours bound to entity types.
type EntityBehaviourManager = Manager[behaviour.EntityBehaviourTypeID, *reactive.Entity]

// RelationBehaviourManager manages behaviours bound to relation types.
type RelationBehaviourManager = Manager[behaviour.RelationBehaviourTypeID, *reactive.Relation]

// EntityComponentBehaviourManager manages component behaviours on entities.
type EntityComponentBehaviourManager = ComponentManager[*reactive.Entity]

// RelationComponentBehaviourManager manages component behaviours on relations.
type RelationComponentBehaviourManager = ComponentManager[*reactive.Relation]

// NewEntityBehaviourManager matches keys on the entity type.
func NewEntityBehaviourManager(instances func() []*reactive.Entity) *EntityBehaviourManager {
	registry := NewRegistry[behaviour.EntityBehaviourTypeID](behaviour.FamilyEntity)
	return NewManager(registry, func(ty behaviour.EntityBehaviourTypeID, e *reactive.Entity) bool {
		return e.EntityType() == ty.EntityTy
	}, instances)
}

// NewRelationBehaviourManager matches keys on the relation type, ignoring
// the instance discriminator.
func NewRelationBehaviourManager(instances func() []*reactive.Relation) *RelationBehaviourManager {
	registry := NewRegistry[behaviour.RelationBehaviourTypeID](behaviour.FamilyRelation)
	return NewManager(registry, func(ty behaviour.RelationBehaviourTypeID, r *reactive.Relation) bool {
		return r.RelationType() == ty.RelationTy
	}, instances)
}

// NewEntityComponentBehaviourManager constructs the entity-component manager.
func NewEntityComponentBehaviourManager(instances func() []*reactive.Entity) *EntityComponentBehaviourManager {
	return NewComponentManager(NewRegistry[behaviour.ComponentBehaviourTypeID](behaviour.FamilyEntityComponent), instances)
}

// NewRelationComponentBehaviourManager constructs the relation-component manager.
func NewRelationComponentBehaviourManager(instances func() []*reactive.Relation) *RelationComponentBehaviourManager {
	return NewComponentManager(NewRegistry[behaviour.ComponentBehaviourTypeID](behaviour.FamilyRelationComponent), instances)
}
