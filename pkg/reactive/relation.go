package reactive

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"reactivegraph/pkg/graph"
)

// relationIDSeparator joins the parts of a relation's string key.
const relationIDSeparator = "--"

// RelationInstanceID is the composite identity of a relation.
type RelationInstanceID struct {
	OutboundID uuid.UUID                    `json:"outbound_id"`
	Ty         graph.RelationInstanceTypeID `json:"ty"`
	InboundID  uuid.UUID                    `json:"inbound_id"`
}

func (id RelationInstanceID) String() string {
	return id.OutboundID.String() + relationIDSeparator + id.Ty.String() + relationIDSeparator + id.InboundID.String()
}

// ParseRelationInstanceID parses the string key produced by String.
func ParseRelationInstanceID(value string) (RelationInstanceID, error) {
	first := strings.Index(value, relationIDSeparator)
	last := strings.LastIndex(value, relationIDSeparator)
	if first < 0 || first == last {
		return RelationInstanceID{}, fmt.Errorf("relation id %q: malformed", value)
	}
	outbound, err := uuid.Parse(value[:first])
	if err != nil {
		return RelationInstanceID{}, fmt.Errorf("relation id %q: outbound: %w", value, err)
	}
	inbound, err := uuid.Parse(value[last+len(relationIDSeparator):])
	if err != nil {
		return RelationInstanceID{}, fmt.Errorf("relation id %q: inbound: %w", value, err)
	}
	ty, err := graph.ParseRelationInstanceTypeID(value[first+len(relationIDSeparator) : last])
	if err != nil {
		return RelationInstanceID{}, fmt.Errorf("relation id %q: %w", value, err)
	}
	return RelationInstanceID{OutboundID: outbound, Ty: ty, InboundID: inbound}, nil
}

// EntityResolver looks up entities by id.
type EntityResolver interface {
	Entity(id uuid.UUID) (*Entity, bool)
}

// Relation is a reactive instance connecting two entities. Endpoints are
// held by id and resolved on demand.
type Relation struct {
	*base
	id          RelationInstanceID
	key         string
	resolver    EntityResolver
	name        string
	description string
}

var _ Instance = (*Relation)(nil)

// NewRelation constructs a relation between outbound and inbound.
func NewRelation(outbound uuid.UUID, ty graph.RelationInstanceTypeID, inbound uuid.UUID, resolver EntityResolver, opts ...Option) (*Relation, error) {
	if ty.Ty.IsZero() {
		return nil, fmt.Errorf("relation: %w", graph.ErrInvalidNamespacedType)
	}
	o := collectOptions(opts)
	id := RelationInstanceID{OutboundID: outbound, Ty: ty, InboundID: inbound}
	key := id.String()
	b, err := newBase(key, o)
	if err != nil {
		return nil, err
	}
	return &Relation{base: b, id: id, key: key, resolver: resolver, name: o.name, description: o.description}, nil
}

// NewRelationFromType constructs a relation whose property set is derived
// from the relation type and its components.
func NewRelationFromType(rt graph.RelationType, outbound uuid.UUID, instance string, inbound uuid.UUID, resolver EntityResolver, components graph.ComponentProvider, opts ...Option) (*Relation, error) {
	props := append([]graph.PropertyType(nil), rt.Properties...)
	for _, p := range graph.ComponentPropertyTypes(components, rt.Components) {
		if _, dup := findByName(props, p.Name); !dup {
			props = append(props, p)
		}
	}
	typed := make([]Option, 0, len(props)+2+len(opts))
	typed = append(typed, WithComponentProvider(components), WithComponents(rt.Components...))
	for _, p := range props {
		typed = append(typed, WithProperty(p.Name, p.Mutability, p.DataType.DefaultValue()))
	}
	ty := graph.NewRelationInstanceTypeID(rt.Ty, instance)
	return NewRelation(outbound, ty, inbound, resolver, append(typed, opts...)...)
}

// ID returns the composite key as a string.
func (r *Relation) ID() string { return r.key }

// InstanceID returns the composite identity.
func (r *Relation) InstanceID() RelationInstanceID { return r.id }

// Kind implements Instance.
func (r *Relation) Kind() Kind { return KindRelation }

// TypeID implements Instance. It is the relation type without the instance
// discriminator.
func (r *Relation) TypeID() graph.NamespacedType { return r.id.Ty.Ty.NamespacedType }

// RelationType returns the relation type id.
func (r *Relation) RelationType() graph.RelationTypeID { return r.id.Ty.Ty }

// InstanceType returns the relation type including the discriminator.
func (r *Relation) InstanceType() graph.RelationInstanceTypeID { return r.id.Ty }

// Name returns the display name.
func (r *Relation) Name() string { return r.name }

// Description returns the description.
func (r *Relation) Description() string { return r.description }

// OutboundID returns the id of the outbound entity.
func (r *Relation) OutboundID() uuid.UUID { return r.id.OutboundID }

// InboundID returns the id of the inbound entity.
func (r *Relation) InboundID() uuid.UUID { return r.id.InboundID }

// Outbound resolves the outbound entity.
func (r *Relation) Outbound() (*Entity, error) {
	return r.resolve(r.id.OutboundID, "outbound")
}

// Inbound resolves the inbound entity.
func (r *Relation) Inbound() (*Entity, error) {
	return r.resolve(r.id.InboundID, "inbound")
}

func (r *Relation) resolve(id uuid.UUID, side string) (*Entity, error) {
	if r.resolver == nil {
		return nil, fmt.Errorf("relation %s %s %s: %w", r.key, side, id, ErrInstanceNotFound)
	}
	e, ok := r.resolver.Entity(id)
	if !ok {
		return nil, fmt.Errorf("relation %s %s %s: %w", r.key, side, id, ErrInstanceNotFound)
	}
	return e, nil
}
