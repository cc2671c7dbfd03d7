// Package connector provides the default connector relation: it copies a
// property of the outbound entity into a property of the inbound entity
// whenever the outbound value changes.
package connector

import (
	"errors"
	"fmt"

	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/pluginapi"
	"reactivegraph/pkg/reactive"
)

// Namespace is shared by every type the plugin contributes.
const Namespace = "connector"

// Property names.
const (
	PropertyOutboundName     = "outbound_property_name"
	PropertyInboundName      = "inbound_property_name"
	PropertyPropagationCount = "propagation_count"
)

var (
	// DefaultConnectorType connects any two entities.
	DefaultConnectorType = graph.NewRelationTypeID(Namespace, "default_connector")
	// PropagationCounter counts the values a relation has forwarded.
	PropagationCounter = graph.NewComponentTypeID(Namespace, "propagation_counter")

	// DefaultConnector is the relation behaviour that forwards values.
	DefaultConnector = behaviour.NewRelationBehaviourTypeID(DefaultConnectorType, behaviour.NewBehaviourTypeID(Namespace, "default_connector"))
	// Counter increments propagation_count on relations carrying
	// PropagationCounter.
	Counter = behaviour.NewComponentBehaviourTypeID(PropagationCounter, behaviour.NewBehaviourTypeID(Namespace, "propagation_counter"))
)

// ErrPropertyNameMissing is returned when a connector relation does not name
// the properties it connects.
var ErrPropertyNameMissing = errors.New("connector property name missing")

// Plugin contributes the connector relation type, the counter component and
// their behaviours.
type Plugin struct{}

// New constructs a connector plugin.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return Namespace }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register contributes the connector types and behaviours.
func (Plugin) Register(registry pluginapi.Registry) error {
	names := []graph.PropertyType{
		graph.NewPropertyType(PropertyOutboundName, graph.DataTypeString),
		graph.NewPropertyType(PropertyInboundName, graph.DataTypeString),
	}
	return errors.Join(
		registry.RegisterComponent(graph.Component{
			Ty:          PropagationCounter,
			Description: "Counts forwarded values",
			Properties:  append([]graph.PropertyType{graph.OutputProperty(PropertyPropagationCount, graph.DataTypeNumber)}, names...),
		}),
		registry.RegisterRelationType(graph.RelationType{
			Ty:          DefaultConnectorType,
			Description: "Forwards an outbound property to an inbound property",
			Properties:  names,
		}),
		registry.RegisterRelationBehaviour(DefaultConnector, behaviour.NewFactory(DefaultConnector, newForwarder)),
		registry.RegisterRelationComponentBehaviour(Counter, behaviour.NewFactory(Counter, newCounter)),
	)
}

var _ pluginapi.Plugin = Plugin{}

// endpoints reads the property names a connector relation links.
func endpoints(r *reactive.Relation) (outbound, inbound string, err error) {
	outbound, _ = stringProperty(r, PropertyOutboundName)
	inbound, _ = stringProperty(r, PropertyInboundName)
	if outbound == "" {
		return "", "", fmt.Errorf("%s: %w", PropertyOutboundName, ErrPropertyNameMissing)
	}
	if inbound == "" {
		return "", "", fmt.Errorf("%s: %w", PropertyInboundName, ErrPropertyNameMissing)
	}
	return outbound, inbound, nil
}

func stringProperty(i reactive.Instance, name string) (string, bool) {
	p, ok := i.Property(name)
	if !ok {
		return "", false
	}
	return p.AsString()
}

type forwarder struct {
	behaviour.NoopTransitions
	relation  *reactive.Relation
	observers *behaviour.ObserverContainer
}

func newForwarder(instance reactive.Instance, observers *behaviour.ObserverContainer) (behaviour.Transitions, error) {
	r, err := behaviour.AsRelation(instance)
	if err != nil {
		return nil, err
	}
	return &forwarder{relation: r, observers: observers}, nil
}

func (f *forwarder) Validate() error {
	out, in, err := endpoints(f.relation)
	if err != nil {
		return err
	}
	if err := behaviour.ValidateOutboundProperty(f.relation, out); err != nil {
		return err
	}
	return behaviour.ValidateInboundProperty(f.relation, in)
}

func (f *forwarder) Connect() error {
	outName, inName, err := endpoints(f.relation)
	if err != nil {
		return err
	}
	outbound, err := f.relation.Outbound()
	if err != nil {
		return err
	}
	inbound, err := f.relation.Inbound()
	if err != nil {
		return err
	}
	_, err = f.observers.ObserveOn(outbound, outName, func(v any) { _ = inbound.Set(inName, v) })
	return err
}

type counter struct {
	behaviour.NoopTransitions
	relation  *reactive.Relation
	observers *behaviour.ObserverContainer
}

func newCounter(instance reactive.Instance, observers *behaviour.ObserverContainer) (behaviour.Transitions, error) {
	r, err := behaviour.AsRelation(instance)
	if err != nil {
		return nil, err
	}
	return &counter{relation: r, observers: observers}, nil
}

func (c *counter) Validate() error {
	if err := behaviour.ValidatePropertyType(c.relation, PropertyPropagationCount, graph.DataTypeNumber); err != nil {
		return err
	}
	out, _, err := endpoints(c.relation)
	if err != nil {
		return err
	}
	return behaviour.ValidateOutboundProperty(c.relation, out)
}

func (c *counter) Connect() error {
	outName, _, err := endpoints(c.relation)
	if err != nil {
		return err
	}
	outbound, err := c.relation.Outbound()
	if err != nil {
		return err
	}
	_, err = c.observers.ObserveOn(outbound, outName, func(any) {
		p, ok := c.relation.Property(PropertyPropagationCount)
		if !ok {
			return
		}
		n, _ := p.AsFloat64()
		_ = p.Set(n + 1)
	})
	return err
}
