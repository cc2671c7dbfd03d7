package reactive

import (
	"github.com/google/uuid"

	"reactivegraph/pkg/graph"
)

// Entity is a reactive instance identified by a UUID.
type Entity struct {
	*base
	id          uuid.UUID
	ty          graph.EntityTypeID
	name        string
	description string
}

var _ Instance = (*Entity)(nil)

// NewEntity constructs an entity of the given type.
func NewEntity(ty graph.EntityTypeID, opts ...Option) (*Entity, error) {
	o := collectOptions(opts)
	id := o.id
	if id == uuid.Nil {
		id = uuid.New()
	}
	b, err := newBase(id.String(), o)
	if err != nil {
		return nil, err
	}
	return &Entity{base: b, id: id, ty: ty, name: o.name, description: o.description}, nil
}

// NewEntityFromType constructs an entity whose property set is derived from
// the entity type and its components, each initialised with its data type's
// default value. Explicit WithProperty options override type defaults.
func NewEntityFromType(et graph.EntityType, components graph.ComponentProvider, opts ...Option) (*Entity, error) {
	props := append([]graph.PropertyType(nil), et.Properties...)
	for _, p := range graph.ComponentPropertyTypes(components, et.Components) {
		if _, dup := findByName(props, p.Name); !dup {
			props = append(props, p)
		}
	}
	typed := make([]Option, 0, len(props)+2+len(opts))
	typed = append(typed, WithComponentProvider(components), WithComponents(et.Components...))
	for _, p := range props {
		typed = append(typed, WithProperty(p.Name, p.Mutability, p.DataType.DefaultValue()))
	}
	return NewEntity(et.Ty, append(typed, opts...)...)
}

func findByName(props []graph.PropertyType, name string) (graph.PropertyType, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return graph.PropertyType{}, false
}

// ID returns the entity id as a string.
func (e *Entity) ID() string { return e.id.String() }

// UUID returns the entity id.
func (e *Entity) UUID() uuid.UUID { return e.id }

// Kind implements Instance.
func (e *Entity) Kind() Kind { return KindEntity }

// TypeID implements Instance.
func (e *Entity) TypeID() graph.NamespacedType { return e.ty.NamespacedType }

// EntityType returns the entity type id.
func (e *Entity) EntityType() graph.EntityTypeID { return e.ty }

// Name returns the display name.
func (e *Entity) Name() string { return e.name }

// Description returns the description.
func (e *Entity) Description() string { return e.description }
