// Package reactive implements the live graph: observable properties and the
// entity and relation instances that own them.
package reactive

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"reactivegraph/pkg/graph"
)

// Kind distinguishes the two instance variants.
type Kind string

// Instance kinds.
const (
	KindEntity   Kind = "entity"
	KindRelation Kind = "relation"
)

// Instance is the capability set shared by entities and relations.
//
// Behaviour markers are bookkeeping only: an instance never attaches or
// detaches behaviours on its own. Pairing a marker with a live behaviour is
// the responsibility of the owning manager.
type Instance interface {
	ID() string
	Kind() Kind
	TypeID() graph.NamespacedType

	Get(name string) (any, bool)
	Set(name string, value any) error
	Property(name string) (*Property, bool)
	HasProperty(name string) bool
	AddProperty(name string, mutability graph.Mutability, value any) error
	RemoveProperty(name string) error
	PropertyNames() []string
	Properties() map[string]any

	ObserveWithHandle(name string, fn Observer, handle HandleID) error
	RemoveObserver(name string, handle HandleID) bool
	RemoveObservers(name string)
	RemoveAllObservers()
	Tick()
	TickChecked()

	Components() []graph.ComponentTypeID
	AddComponent(ty graph.ComponentTypeID)
	RemoveComponent(ty graph.ComponentTypeID)
	IsA(ty graph.ComponentTypeID) bool

	Behaviours() []graph.NamespacedType
	AddBehaviour(ty graph.NamespacedType)
	RemoveBehaviour(ty graph.NamespacedType)
	BehavesAs(ty graph.NamespacedType) bool
	BehavesAsAll(tys ...graph.NamespacedType) bool
}

// Option configures a new entity or relation.
type Option func(*options)

type initialProperty struct {
	name       string
	mutability graph.Mutability
	value      any
}

type options struct {
	name        string
	description string
	components  []graph.ComponentTypeID
	properties  []initialProperty
	provider    graph.ComponentProvider
	limit       int
	id          uuid.UUID
}

// WithID fixes the entity id instead of generating one. Relations derive
// their id from their endpoints and ignore it.
func WithID(id uuid.UUID) Option {
	return func(o *options) { o.id = id }
}

// WithName sets a display name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDescription sets a description.
func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// WithComponents adds components to the instance.
func WithComponents(tys ...graph.ComponentTypeID) Option {
	return func(o *options) { o.components = append(o.components, tys...) }
}

// WithProperty adds an initial property. Later options override earlier
// properties of the same name.
func WithProperty(name string, mutability graph.Mutability, value any) Option {
	return func(o *options) {
		o.properties = append(o.properties, initialProperty{name: name, mutability: mutability, value: value})
	}
}

// WithComponentProvider sets the provider used to decide whether a property
// is declared by one of the instance's components.
func WithComponentProvider(provider graph.ComponentProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithPropagationLimit bounds nested dispatch depth per property.
func WithPropagationLimit(limit int) Option {
	return func(o *options) { o.limit = limit }
}

func collectOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// base carries the state shared by entities and relations.
type base struct {
	props    *Properties
	provider graph.ComponentProvider

	mu         sync.RWMutex
	components map[graph.ComponentTypeID]struct{}
	behaviours map[graph.NamespacedType]struct{}
}

func newBase(id string, o options) (*base, error) {
	b := &base{
		props:      NewProperties(id),
		provider:   o.provider,
		components: make(map[graph.ComponentTypeID]struct{}, len(o.components)),
		behaviours: make(map[graph.NamespacedType]struct{}),
	}
	b.props.SetPropagationLimit(o.limit)
	for _, c := range o.components {
		b.components[c] = struct{}{}
	}
	seen := make(map[string]int, len(o.properties))
	for i, p := range o.properties {
		seen[p.name] = i
	}
	for i, p := range o.properties {
		if seen[p.name] != i {
			continue
		}
		if _, err := b.props.Add(p.name, p.mutability, p.value); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *base) Get(name string) (any, bool) {
	p, ok := b.props.Get(name)
	if !ok {
		return nil, false
	}
	return p.Get(), true
}

func (b *base) Set(name string, value any) error {
	p, ok := b.props.Get(name)
	if !ok {
		return fmt.Errorf("%s.%s: %w", b.props.owner, name, ErrPropertyNotFound)
	}
	return p.Set(value)
}

func (b *base) Property(name string) (*Property, bool) {
	return b.props.Get(name)
}

func (b *base) HasProperty(name string) bool {
	return b.props.Has(name)
}

func (b *base) AddProperty(name string, mutability graph.Mutability, value any) error {
	_, err := b.props.Add(name, mutability, value)
	return err
}

// RemoveProperty refuses to remove a property declared by one of the
// instance's components.
func (b *base) RemoveProperty(name string) error {
	if !b.props.Has(name) {
		return fmt.Errorf("%s.%s: %w", b.props.owner, name, ErrPropertyNotFound)
	}
	if users := graph.DeclaringComponents(b.provider, b.Components(), name); len(users) > 0 {
		return fmt.Errorf("%s.%s used by %s: %w", b.props.owner, name, users[0], ErrPropertyInUseByComponent)
	}
	return b.props.Remove(name)
}

func (b *base) PropertyNames() []string {
	return b.props.Names()
}

func (b *base) Properties() map[string]any {
	return b.props.Values()
}

// PropertyContainer exposes the underlying container.
func (b *base) PropertyContainer() *Properties {
	return b.props
}

func (b *base) ObserveWithHandle(name string, fn Observer, handle HandleID) error {
	p, ok := b.props.Get(name)
	if !ok {
		return fmt.Errorf("%s.%s: %w", b.props.owner, name, ErrPropertyNotFound)
	}
	p.ObserveWithHandle(fn, handle)
	return nil
}

func (b *base) RemoveObserver(name string, handle HandleID) bool {
	p, ok := b.props.Get(name)
	if !ok {
		return false
	}
	return p.RemoveObserver(handle)
}

func (b *base) RemoveObservers(name string) {
	if p, ok := b.props.Get(name); ok {
		p.RemoveObservers()
	}
}

func (b *base) RemoveAllObservers() {
	b.props.RemoveAllObservers()
}

// Tick re-broadcasts every property value. Propagation limit errors are
// dropped; each property is ticked independently.
func (b *base) Tick() {
	for _, p := range b.props.All() {
		_ = p.Tick()
	}
}

func (b *base) TickChecked() {
	for _, p := range b.props.All() {
		_ = p.TickChecked()
	}
}

func (b *base) Components() []graph.ComponentTypeID {
	b.mu.RLock()
	out := make([]graph.ComponentTypeID, 0, len(b.components))
	for c := range b.components {
		out = append(out, c)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (b *base) AddComponent(ty graph.ComponentTypeID) {
	b.mu.Lock()
	b.components[ty] = struct{}{}
	b.mu.Unlock()
}

func (b *base) RemoveComponent(ty graph.ComponentTypeID) {
	b.mu.Lock()
	delete(b.components, ty)
	b.mu.Unlock()
}

func (b *base) IsA(ty graph.ComponentTypeID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.components[ty]
	return ok
}

func (b *base) Behaviours() []graph.NamespacedType {
	b.mu.RLock()
	out := make([]graph.NamespacedType, 0, len(b.behaviours))
	for ty := range b.behaviours {
		out = append(out, ty)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (b *base) AddBehaviour(ty graph.NamespacedType) {
	b.mu.Lock()
	b.behaviours[ty] = struct{}{}
	b.mu.Unlock()
}

func (b *base) RemoveBehaviour(ty graph.NamespacedType) {
	b.mu.Lock()
	delete(b.behaviours, ty)
	b.mu.Unlock()
}

func (b *base) BehavesAs(ty graph.NamespacedType) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.behaviours[ty]
	return ok
}

func (b *base) BehavesAsAll(tys ...graph.NamespacedType) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ty := range tys {
		if _, ok := b.behaviours[ty]; !ok {
			return false
		}
	}
	return true
}
