// Package graph defines the type identifiers and property type descriptions
// that the type system hands to the reactive runtime. The type system itself
// (namespacing rules, import/export, flow types) lives outside this module;
// only the values crossing that boundary are modelled here.
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// NamespaceSeparator separates namespace and type name in the string form.
const NamespaceSeparator = "::"

// ErrInvalidNamespacedType indicates a malformed namespace::type_name string.
var ErrInvalidNamespacedType = errors.New("graph: invalid namespaced type")

// NamespacedType is the structural identity shared by every type id.
type NamespacedType struct {
	Namespace string `json:"namespace"`
	TypeName  string `json:"type_name"`
}

// NewNamespacedType constructs a namespaced type.
func NewNamespacedType(namespace, typeName string) NamespacedType {
	return NamespacedType{Namespace: namespace, TypeName: typeName}
}

// ParseNamespacedType parses the `namespace::type_name` form.
func ParseNamespacedType(value string) (NamespacedType, error) {
	idx := strings.LastIndex(value, NamespaceSeparator)
	if idx <= 0 || idx+len(NamespaceSeparator) >= len(value) {
		return NamespacedType{}, fmt.Errorf("%w: %q", ErrInvalidNamespacedType, value)
	}
	nt := NamespacedType{
		Namespace: value[:idx],
		TypeName:  value[idx+len(NamespaceSeparator):],
	}
	if strings.TrimSpace(nt.Namespace) == "" || strings.TrimSpace(nt.TypeName) == "" {
		return NamespacedType{}, fmt.Errorf("%w: %q", ErrInvalidNamespacedType, value)
	}
	return nt, nil
}

// IsZero reports whether the type is unset.
func (t NamespacedType) IsZero() bool {
	return t.Namespace == "" && t.TypeName == ""
}

func (t NamespacedType) String() string {
	return t.Namespace + NamespaceSeparator + t.TypeName
}

// EntityTypeID identifies an entity type.
type EntityTypeID struct{ NamespacedType }

// NewEntityTypeID constructs an entity type id.
func NewEntityTypeID(namespace, typeName string) EntityTypeID {
	return EntityTypeID{NewNamespacedType(namespace, typeName)}
}

// RelationTypeID identifies a relation type.
type RelationTypeID struct{ NamespacedType }

// NewRelationTypeID constructs a relation type id.
func NewRelationTypeID(namespace, typeName string) RelationTypeID {
	return RelationTypeID{NewNamespacedType(namespace, typeName)}
}

// ComponentTypeID identifies a component.
type ComponentTypeID struct{ NamespacedType }

// NewComponentTypeID constructs a component type id.
func NewComponentTypeID(namespace, typeName string) ComponentTypeID {
	return ComponentTypeID{NewNamespacedType(namespace, typeName)}
}

// InstanceSeparator separates a relation type name from its instance discriminator.
const InstanceSeparator = "__"

// RelationInstanceTypeID is a relation type plus an optional instance
// discriminator, allowing several relations of one type between the same
// pair of entities.
type RelationInstanceTypeID struct {
	Ty       RelationTypeID `json:"ty"`
	Instance string         `json:"instance,omitempty"`
}

// NewRelationInstanceTypeID constructs a relation instance type id.
func NewRelationInstanceTypeID(ty RelationTypeID, instance string) RelationInstanceTypeID {
	return RelationInstanceTypeID{Ty: ty, Instance: instance}
}

func (t RelationInstanceTypeID) String() string {
	if t.Instance == "" {
		return t.Ty.String()
	}
	return t.Ty.String() + InstanceSeparator + t.Instance
}

// ParseRelationInstanceTypeID parses `namespace::type_name[__instance]`.
func ParseRelationInstanceTypeID(value string) (RelationInstanceTypeID, error) {
	nt, err := ParseNamespacedType(value)
	if err != nil {
		return RelationInstanceTypeID{}, err
	}
	name, instance, _ := strings.Cut(nt.TypeName, InstanceSeparator)
	if name == "" {
		return RelationInstanceTypeID{}, fmt.Errorf("%w: %q", ErrInvalidNamespacedType, value)
	}
	return RelationInstanceTypeID{Ty: NewRelationTypeID(nt.Namespace, name), Instance: instance}, nil
}
