package behaviour

import (
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/reactive"
)

// ValidateProperty fails with ErrPropertyMissing when the instance lacks name.
func ValidateProperty(instance reactive.Instance, name string) error {
	if instance == nil || !instance.HasProperty(name) {
		return &PropertyInvalidError{Kind: ErrPropertyMissing, Property: name}
	}
	return nil
}

// ValidatePropertyType additionally checks the current value's data type.
func ValidatePropertyType(instance reactive.Instance, name string, expected graph.DataType) error {
	if err := ValidateProperty(instance, name); err != nil {
		return err
	}
	value, _ := instance.Get(name)
	if !expected.Accepts(value) {
		return &PropertyInvalidError{
			Kind:     ErrInvalidDataType,
			Property: name,
			Expected: expected,
			Actual:   graph.DataTypeOf(value),
		}
	}
	return nil
}

// ValidateOutboundProperty fails with ErrOutboundPropertyMissing when the
// relation's outbound entity lacks name or cannot be resolved.
func ValidateOutboundProperty(relation *reactive.Relation, name string) error {
	if relation == nil {
		return &PropertyInvalidError{Kind: ErrOutboundPropertyMissing, Property: name}
	}
	outbound, err := relation.Outbound()
	if err != nil || !outbound.HasProperty(name) {
		return &PropertyInvalidError{Kind: ErrOutboundPropertyMissing, Property: name}
	}
	return nil
}

// ValidateInboundProperty fails with ErrInboundPropertyMissing when the
// relation's inbound entity lacks name or cannot be resolved.
func ValidateInboundProperty(relation *reactive.Relation, name string) error {
	if relation == nil {
		return &PropertyInvalidError{Kind: ErrInboundPropertyMissing, Property: name}
	}
	inbound, err := relation.Inbound()
	if err != nil || !inbound.HasProperty(name) {
		return &PropertyInvalidError{Kind: ErrInboundPropertyMissing, Property: name}
	}
	return nil
}

// PropertyValidator requires a set of properties on the instance.
type PropertyValidator struct {
	Instance   reactive.Instance
	Properties []string
}

// Validate implements Validator.
func (v PropertyValidator) Validate() error {
	for _, name := range v.Properties {
		if err := ValidateProperty(v.Instance, name); err != nil {
			return err
		}
	}
	return nil
}

// RelationPropertyValidator requires properties on a relation and on its
// endpoints.
type RelationPropertyValidator struct {
	Relation   *reactive.Relation
	Properties []string
	Outbound   []string
	Inbound    []string
}

// Validate implements Validator.
func (v RelationPropertyValidator) Validate() error {
	for _, name := range v.Properties {
		if v.Relation == nil {
			return &PropertyInvalidError{Kind: ErrPropertyMissing, Property: name}
		}
		if err := ValidateProperty(v.Relation, name); err != nil {
			return err
		}
	}
	for _, name := range v.Outbound {
		if err := ValidateOutboundProperty(v.Relation, name); err != nil {
			return err
		}
	}
	for _, name := range v.Inbound {
		if err := ValidateInboundProperty(v.Relation, name); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Validator = PropertyValidator{}
	_ Validator = RelationPropertyValidator{}
)
