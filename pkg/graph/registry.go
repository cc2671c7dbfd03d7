package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	ErrTypeAlreadyRegistered = errors.New("graph: type already registered")
	ErrTypeNotFound          = errors.New("graph: type not found")
)

// TypeRegistry is an in-memory TypeSystem.
type TypeRegistry struct {
	mu         sync.RWMutex
	components map[ComponentTypeID]Component
	entities   map[EntityTypeID]EntityType
	relations  map[RelationTypeID]RelationType
}

var _ TypeSystem = (*TypeRegistry)(nil)

// NewTypeRegistry constructs an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		components: make(map[ComponentTypeID]Component),
		entities:   make(map[EntityTypeID]EntityType),
		relations:  make(map[RelationTypeID]RelationType),
	}
}

func validateProperties(owner string, props []PropertyType) error {
	seen := make(map[string]struct{}, len(props))
	for _, p := range props {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", owner, err)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%s: duplicate property %s", owner, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// RegisterComponent adds a component definition.
func (r *TypeRegistry) RegisterComponent(c Component) error {
	if c.Ty.IsZero() {
		return fmt.Errorf("component: %w", ErrInvalidNamespacedType)
	}
	if err := validateProperties(c.Ty.String(), c.Properties); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[c.Ty]; exists {
		return fmt.Errorf("component %s: %w", c.Ty, ErrTypeAlreadyRegistered)
	}
	c.Properties = append([]PropertyType(nil), c.Properties...)
	r.components[c.Ty] = c
	return nil
}

// RegisterEntityType adds an entity type definition.
func (r *TypeRegistry) RegisterEntityType(t EntityType) error {
	if t.Ty.IsZero() {
		return fmt.Errorf("entity type: %w", ErrInvalidNamespacedType)
	}
	if err := validateProperties(t.Ty.String(), t.Properties); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entities[t.Ty]; exists {
		return fmt.Errorf("entity type %s: %w", t.Ty, ErrTypeAlreadyRegistered)
	}
	t.Properties = append([]PropertyType(nil), t.Properties...)
	t.Components = append([]ComponentTypeID(nil), t.Components...)
	r.entities[t.Ty] = t
	return nil
}

// RegisterRelationType adds a relation type definition.
func (r *TypeRegistry) RegisterRelationType(t RelationType) error {
	if t.Ty.IsZero() {
		return fmt.Errorf("relation type: %w", ErrInvalidNamespacedType)
	}
	if err := validateProperties(t.Ty.String(), t.Properties); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.relations[t.Ty]; exists {
		return fmt.Errorf("relation type %s: %w", t.Ty, ErrTypeAlreadyRegistered)
	}
	t.Properties = append([]PropertyType(nil), t.Properties...)
	t.Components = append([]ComponentTypeID(nil), t.Components...)
	r.relations[t.Ty] = t
	return nil
}

// UnregisterComponent removes a component definition and reports whether it
// was registered.
func (r *TypeRegistry) UnregisterComponent(ty ComponentTypeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.components[ty]
	delete(r.components, ty)
	return ok
}

// UnregisterEntityType removes an entity type definition and reports whether
// it was registered.
func (r *TypeRegistry) UnregisterEntityType(ty EntityTypeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entities[ty]
	delete(r.entities, ty)
	return ok
}

// UnregisterRelationType removes a relation type definition and reports
// whether it was registered.
func (r *TypeRegistry) UnregisterRelationType(ty RelationTypeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.relations[ty]
	delete(r.relations, ty)
	return ok
}

// Component implements ComponentProvider.
func (r *TypeRegistry) Component(ty ComponentTypeID) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[ty]
	return c, ok
}

// EntityType implements EntityTypeProvider.
func (r *TypeRegistry) EntityType(ty EntityTypeID) (EntityType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.entities[ty]
	return t, ok
}

// RelationType implements RelationTypeProvider.
func (r *TypeRegistry) RelationType(ty RelationTypeID) (RelationType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.relations[ty]
	return t, ok
}

// Components lists registered components sorted by type.
func (r *TypeRegistry) Components() []Component {
	r.mu.RLock()
	out := make([]Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Ty.String() < out[j].Ty.String() })
	return out
}

// EntityTypes lists registered entity types sorted by type.
func (r *TypeRegistry) EntityTypes() []EntityType {
	r.mu.RLock()
	out := make([]EntityType, 0, len(r.entities))
	for _, t := range r.entities {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Ty.String() < out[j].Ty.String() })
	return out
}

// RelationTypes lists registered relation types sorted by type.
func (r *TypeRegistry) RelationTypes() []RelationType {
	r.mu.RLock()
	out := make([]RelationType, 0, len(r.relations))
	for _, t := range r.relations {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Ty.String() < out[j].Ty.String() })
	return out
}

// EntityPropertyTypes returns the entity type's own property types merged with
// those of its components. Own definitions win on name clashes.
func (r *TypeRegistry) EntityPropertyTypes(ty EntityTypeID) ([]PropertyType, error) {
	t, ok := r.EntityType(ty)
	if !ok {
		return nil, fmt.Errorf("entity type %s: %w", ty, ErrTypeNotFound)
	}
	props := append([]PropertyType(nil), t.Properties...)
	return mergePropertyTypes(props, ComponentPropertyTypes(r, t.Components)), nil
}

// RelationPropertyTypes returns the relation type's own property types merged
// with those of its components.
func (r *TypeRegistry) RelationPropertyTypes(ty RelationTypeID) ([]PropertyType, error) {
	t, ok := r.RelationType(ty)
	if !ok {
		return nil, fmt.Errorf("relation type %s: %w", ty, ErrTypeNotFound)
	}
	props := append([]PropertyType(nil), t.Properties...)
	return mergePropertyTypes(props, ComponentPropertyTypes(r, t.Components)), nil
}
