// Package behaviour defines behaviour type identifiers, the behaviour
// lifecycle state machine, and the factories that build behaviours for
// reactive instances.
package behaviour

import (
	"fmt"
	"strings"

	"reactivegraph/pkg/graph"
)

// BehaviourTypeID names a behaviour independent of the type it is bound to.
// It is also the marker stored on an instance while the behaviour is live.
type BehaviourTypeID struct{ graph.NamespacedType }

// NewBehaviourTypeID constructs a behaviour type id.
func NewBehaviourTypeID(namespace, typeName string) BehaviourTypeID {
	return BehaviourTypeID{graph.NewNamespacedType(namespace, typeName)}
}

// Family enumerates the four owner kinds a behaviour can be bound to.
type Family string

// Behaviour families.
const (
	FamilyEntity            Family = "entity"
	FamilyEntityComponent   Family = "entity_component"
	FamilyRelation          Family = "relation"
	FamilyRelationComponent Family = "relation_component"
)

// TypeKey binds a behaviour to its owning type. Every implementation is a
// comparable value type.
type TypeKey interface {
	Owner() graph.NamespacedType
	Behaviour() BehaviourTypeID
	String() string
}

// keySeparator joins owner and behaviour in the string form.
const keySeparator = "/"

func keyString(owner graph.NamespacedType, behaviour BehaviourTypeID) string {
	return owner.String() + keySeparator + behaviour.String()
}

func parseKey(value string) (graph.NamespacedType, BehaviourTypeID, error) {
	owner, behaviour, ok := strings.Cut(value, keySeparator)
	if !ok {
		return graph.NamespacedType{}, BehaviourTypeID{}, fmt.Errorf("behaviour type %q: missing %q", value, keySeparator)
	}
	o, err := graph.ParseNamespacedType(owner)
	if err != nil {
		return graph.NamespacedType{}, BehaviourTypeID{}, err
	}
	b, err := graph.ParseNamespacedType(behaviour)
	if err != nil {
		return graph.NamespacedType{}, BehaviourTypeID{}, err
	}
	return o, BehaviourTypeID{b}, nil
}

// EntityBehaviourTypeID binds a behaviour to an entity type.
type EntityBehaviourTypeID struct {
	EntityTy    graph.EntityTypeID
	BehaviourTy BehaviourTypeID
}

// NewEntityBehaviourTypeID constructs an entity behaviour type id.
func NewEntityBehaviourTypeID(entityTy graph.EntityTypeID, behaviourTy BehaviourTypeID) EntityBehaviourTypeID {
	return EntityBehaviourTypeID{EntityTy: entityTy, BehaviourTy: behaviourTy}
}

// ParseEntityBehaviourTypeID parses `owner/behaviour`.
func ParseEntityBehaviourTypeID(value string) (EntityBehaviourTypeID, error) {
	o, b, err := parseKey(value)
	return EntityBehaviourTypeID{EntityTy: graph.EntityTypeID{NamespacedType: o}, BehaviourTy: b}, err
}

// Owner implements TypeKey.
func (t EntityBehaviourTypeID) Owner() graph.NamespacedType { return t.EntityTy.NamespacedType }

// Behaviour implements TypeKey.
func (t EntityBehaviourTypeID) Behaviour() BehaviourTypeID { return t.BehaviourTy }

func (t EntityBehaviourTypeID) String() string { return keyString(t.Owner(), t.BehaviourTy) }

// RelationBehaviourTypeID binds a behaviour to a relation type.
type RelationBehaviourTypeID struct {
	RelationTy  graph.RelationTypeID
	BehaviourTy BehaviourTypeID
}

// NewRelationBehaviourTypeID constructs a relation behaviour type id.
func NewRelationBehaviourTypeID(relationTy graph.RelationTypeID, behaviourTy BehaviourTypeID) RelationBehaviourTypeID {
	return RelationBehaviourTypeID{RelationTy: relationTy, BehaviourTy: behaviourTy}
}

// ParseRelationBehaviourTypeID parses `owner/behaviour`.
func ParseRelationBehaviourTypeID(value string) (RelationBehaviourTypeID, error) {
	o, b, err := parseKey(value)
	return RelationBehaviourTypeID{RelationTy: graph.RelationTypeID{NamespacedType: o}, BehaviourTy: b}, err
}

// Owner implements TypeKey.
func (t RelationBehaviourTypeID) Owner() graph.NamespacedType { return t.RelationTy.NamespacedType }

// Behaviour implements TypeKey.
func (t RelationBehaviourTypeID) Behaviour() BehaviourTypeID { return t.BehaviourTy }

func (t RelationBehaviourTypeID) String() string { return keyString(t.Owner(), t.BehaviourTy) }

// ComponentBehaviourTypeID binds a behaviour to a component. The same key
// type serves the entity-component and relation-component families.
type ComponentBehaviourTypeID struct {
	ComponentTy graph.ComponentTypeID
	BehaviourTy BehaviourTypeID
}

// NewComponentBehaviourTypeID constructs a component behaviour type id.
func NewComponentBehaviourTypeID(componentTy graph.ComponentTypeID, behaviourTy BehaviourTypeID) ComponentBehaviourTypeID {
	return ComponentBehaviourTypeID{ComponentTy: componentTy, BehaviourTy: behaviourTy}
}

// ParseComponentBehaviourTypeID parses `owner/behaviour`.
func ParseComponentBehaviourTypeID(value string) (ComponentBehaviourTypeID, error) {
	o, b, err := parseKey(value)
	return ComponentBehaviourTypeID{ComponentTy: graph.ComponentTypeID{NamespacedType: o}, BehaviourTy: b}, err
}

// Owner implements TypeKey.
func (t ComponentBehaviourTypeID) Owner() graph.NamespacedType { return t.ComponentTy.NamespacedType }

// Behaviour implements TypeKey.
func (t ComponentBehaviourTypeID) Behaviour() BehaviourTypeID { return t.BehaviourTy }

func (t ComponentBehaviourTypeID) String() string { return keyString(t.Owner(), t.BehaviourTy) }

var (
	_ TypeKey = EntityBehaviourTypeID{}
	_ TypeKey = RelationBehaviourTypeID{}
	_ TypeKey = ComponentBehaviourTypeID{}
)
