package reactive

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"reactivegraph/pkg/graph"
)

// Arena indexes the live instances by id. Cross references between
// instances are expressed as lookups here rather than pointers.
type Arena struct {
	mu        sync.RWMutex
	entities  map[uuid.UUID]*Entity
	relations map[string]*Relation
	byEntity  map[uuid.UUID]map[string]struct{}
}

var _ EntityResolver = (*Arena)(nil)

// NewArena constructs an empty arena.
func NewArena() *Arena {
	return &Arena{
		entities:  make(map[uuid.UUID]*Entity),
		relations: make(map[string]*Relation),
		byEntity:  make(map[uuid.UUID]map[string]struct{}),
	}
}

// AddEntity registers an entity.
func (a *Arena) AddEntity(e *Entity) error {
	if e == nil {
		return fmt.Errorf("arena: entity required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.entities[e.id]; exists {
		return fmt.Errorf("entity %s: %w", e.id, ErrInstanceExists)
	}
	a.entities[e.id] = e
	return nil
}

// Entity implements EntityResolver.
func (a *Arena) Entity(id uuid.UUID) (*Entity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entities[id]
	return e, ok
}

// RemoveEntity unregisters an entity. Relations touching it must be removed
// first; RemoveEntity fails while any remain.
func (a *Arena) RemoveEntity(id uuid.UUID) (*Entity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, ErrInstanceNotFound)
	}
	if n := len(a.byEntity[id]); n > 0 {
		return nil, fmt.Errorf("entity %s still has %d relations", id, n)
	}
	delete(a.entities, id)
	delete(a.byEntity, id)
	return e, nil
}

// Entities lists every entity sorted by id.
func (a *Arena) Entities() []*Entity {
	a.mu.RLock()
	out := make([]*Entity, 0, len(a.entities))
	for _, e := range a.entities {
		out = append(out, e)
	}
	a.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// EntitiesOfType lists the entities of one type.
func (a *Arena) EntitiesOfType(ty graph.EntityTypeID) []*Entity {
	var out []*Entity
	for _, e := range a.Entities() {
		if e.ty == ty {
			out = append(out, e)
		}
	}
	return out
}

// AddRelation registers a relation. Both endpoints must already be present;
// a relation without a resolver is bound to the arena.
func (a *Arena) AddRelation(r *Relation) error {
	if r == nil {
		return fmt.Errorf("arena: relation required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.relations[r.key]; exists {
		return fmt.Errorf("relation %s: %w", r.key, ErrInstanceExists)
	}
	for _, id := range []uuid.UUID{r.id.OutboundID, r.id.InboundID} {
		if _, ok := a.entities[id]; !ok {
			return fmt.Errorf("relation %s endpoint %s: %w", r.key, id, ErrInstanceNotFound)
		}
	}
	if r.resolver == nil {
		r.resolver = a
	}
	a.relations[r.key] = r
	a.link(r.id.OutboundID, r.key)
	a.link(r.id.InboundID, r.key)
	return nil
}

func (a *Arena) link(entity uuid.UUID, key string) {
	set, ok := a.byEntity[entity]
	if !ok {
		set = make(map[string]struct{})
		a.byEntity[entity] = set
	}
	set[key] = struct{}{}
}

// Relation looks up a relation by its string key.
func (a *Arena) Relation(key string) (*Relation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.relations[key]
	return r, ok
}

// RemoveRelation unregisters a relation.
func (a *Arena) RemoveRelation(key string) (*Relation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.relations[key]
	if !ok {
		return nil, fmt.Errorf("relation %s: %w", key, ErrInstanceNotFound)
	}
	delete(a.relations, key)
	for _, id := range []uuid.UUID{r.id.OutboundID, r.id.InboundID} {
		if set, ok := a.byEntity[id]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(a.byEntity, id)
			}
		}
	}
	return r, nil
}

// Relations lists every relation sorted by key.
func (a *Arena) Relations() []*Relation {
	a.mu.RLock()
	out := make([]*Relation, 0, len(a.relations))
	for _, r := range a.relations {
		out = append(out, r)
	}
	a.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// RelationsOfType lists the relations of one relation type, any discriminator.
func (a *Arena) RelationsOfType(ty graph.RelationTypeID) []*Relation {
	var out []*Relation
	for _, r := range a.Relations() {
		if r.id.Ty.Ty == ty {
			out = append(out, r)
		}
	}
	return out
}

// RelationsOf lists the relations with the entity as either endpoint.
func (a *Arena) RelationsOf(entity uuid.UUID) []*Relation {
	a.mu.RLock()
	out := make([]*Relation, 0, len(a.byEntity[entity]))
	for key := range a.byEntity[entity] {
		out = append(out, a.relations[key])
	}
	a.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Instance looks up an entity (by UUID string) or a relation (by key).
func (a *Arena) Instance(id string) (Instance, bool) {
	if u, err := uuid.Parse(id); err == nil {
		if e, ok := a.Entity(u); ok {
			return e, true
		}
	}
	if r, ok := a.Relation(id); ok {
		return r, true
	}
	return nil, false
}

// Len returns the number of entities and relations.
func (a *Arena) Len() (entities, relations int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entities), len(a.relations)
}
