package graph

// Component is a reusable bundle of property types that entity and relation
// types (and individual instances) can carry.
type Component struct {
	Ty          ComponentTypeID `json:"ty"`
	Description string          `json:"description,omitempty"`
	Properties  []PropertyType  `json:"properties,omitempty"`
}

// Property returns the property type with the given name.
func (c Component) Property(name string) (PropertyType, bool) {
	return findProperty(c.Properties, name)
}

// EntityType describes the shape of an entity.
type EntityType struct {
	Ty          EntityTypeID      `json:"ty"`
	Description string            `json:"description,omitempty"`
	Components  []ComponentTypeID `json:"components,omitempty"`
	Properties  []PropertyType    `json:"properties,omitempty"`
}

// RelationType describes the shape of a relation between two entity types.
// A zero OutboundType or InboundType accepts any entity type.
type RelationType struct {
	Ty           RelationTypeID    `json:"ty"`
	Description  string            `json:"description,omitempty"`
	OutboundType EntityTypeID      `json:"outbound_type"`
	InboundType  EntityTypeID      `json:"inbound_type"`
	Components   []ComponentTypeID `json:"components,omitempty"`
	Properties   []PropertyType    `json:"properties,omitempty"`
}

// ComponentProvider resolves component definitions.
type ComponentProvider interface {
	Component(ty ComponentTypeID) (Component, bool)
}

// EntityTypeProvider resolves entity type definitions.
type EntityTypeProvider interface {
	EntityType(ty EntityTypeID) (EntityType, bool)
}

// RelationTypeProvider resolves relation type definitions.
type RelationTypeProvider interface {
	RelationType(ty RelationTypeID) (RelationType, bool)
}

// TypeSystem is the read side of the type system consumed by the runtime.
type TypeSystem interface {
	ComponentProvider
	EntityTypeProvider
	RelationTypeProvider
}

func findProperty(props []PropertyType, name string) (PropertyType, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyType{}, false
}

// ComponentPropertyTypes returns the property types declared by the given
// components, in component order. Unknown components are skipped.
func ComponentPropertyTypes(provider ComponentProvider, components []ComponentTypeID) []PropertyType {
	var out []PropertyType
	if provider == nil {
		return out
	}
	for _, ty := range components {
		c, ok := provider.Component(ty)
		if !ok {
			continue
		}
		out = mergePropertyTypes(out, c.Properties)
	}
	return out
}

// DeclaringComponents returns the components in the list that declare a
// property with the given name.
func DeclaringComponents(provider ComponentProvider, components []ComponentTypeID, name string) []ComponentTypeID {
	var out []ComponentTypeID
	if provider == nil {
		return out
	}
	for _, ty := range components {
		c, ok := provider.Component(ty)
		if !ok {
			continue
		}
		if _, declared := c.Property(name); declared {
			out = append(out, ty)
		}
	}
	return out
}
