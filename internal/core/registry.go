package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
)

// Key constrains registry and manager keys to the comparable behaviour type
// keys of one family.
type Key interface {
	comparable
	behaviour.TypeKey
}

// Registry maps behaviour type keys of one family to factories. Registering
// an already registered key fails; the existing factory stays in place.
type Registry[K Key] struct {
	family    behaviour.Family
	factories sync.Map // K -> behaviour.Factory
}

// NewRegistry constructs an empty registry for a family.
func NewRegistry[K Key](family behaviour.Family) *Registry[K] {
	return &Registry[K]{family: family}
}

// Family returns the behaviour family served by the registry.
func (r *Registry[K]) Family() behaviour.Family { return r.family }

// Register stores a factory under ty.
func (r *Registry[K]) Register(ty K, factory behaviour.Factory) error {
	if factory == nil {
		return errors.New("behaviour factory cannot be nil")
	}
	if _, loaded := r.factories.LoadOrStore(ty, factory); loaded {
		return fmt.Errorf("%s behaviour %s: %w", r.family, ty, ErrBehaviourAlreadyRegistered)
	}
	return nil
}

// Unregister removes the factory for ty and reports whether one existed.
func (r *Registry[K]) Unregister(ty K) bool {
	_, ok := r.factories.LoadAndDelete(ty)
	return ok
}

// Get returns the factory registered under ty.
func (r *Registry[K]) Get(ty K) (behaviour.Factory, bool) {
	v, ok := r.factories.Load(ty)
	if !ok {
		return nil, false
	}
	return v.(behaviour.Factory), true
}

// Has reports whether ty is registered.
func (r *Registry[K]) Has(ty K) bool {
	_, ok := r.factories.Load(ty)
	return ok
}

// GetAll returns every registered key ordered by string form.
func (r *Registry[K]) GetAll() []K {
	return r.collect(func(K) bool { return true })
}

// GetByOwner returns the keys bound to an owner type.
func (r *Registry[K]) GetByOwner(owner graph.NamespacedType) []K {
	return r.collect(func(k K) bool { return k.Owner() == owner })
}

// GetByBehaviour returns the keys that share a bare behaviour type across
// owners.
func (r *Registry[K]) GetByBehaviour(bt behaviour.BehaviourTypeID) []K {
	return r.collect(func(k K) bool { return k.Behaviour() == bt })
}

// GetByBehaviourType returns the first factory, in key order, whose bare
// behaviour type matches bt.
func (r *Registry[K]) GetByBehaviourType(bt behaviour.BehaviourTypeID) (behaviour.Factory, bool) {
	keys := r.GetByBehaviour(bt)
	if len(keys) == 0 {
		return nil, false
	}
	return r.Get(keys[0])
}

// Count returns the number of registered factories.
func (r *Registry[K]) Count() int {
	n := 0
	r.factories.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func (r *Registry[K]) collect(keep func(K) bool) []K {
	var out []K
	r.factories.Range(func(k, _ any) bool {
		key := k.(K)
		if keep(key) {
			out = append(out, key)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
