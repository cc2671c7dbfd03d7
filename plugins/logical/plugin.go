// Package logical provides boolean gates. The not gate is a component
// behaviour, so any entity that carries logical::gate inverts its input. The
// and and or gates are entity behaviours on their own types.
package logical

import (
	"errors"

	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/pluginapi"
	"reactivegraph/pkg/reactive"
)

// Namespace is shared by every type the plugin contributes.
const Namespace = "logical"

// Property names.
const (
	PropertyLHS    = "lhs"
	PropertyRHS    = "rhs"
	PropertyResult = "result"
)

var (
	// Gate is the component carrying lhs and result.
	Gate = graph.NewComponentTypeID(Namespace, "gate")

	// NotType is an entity type that carries Gate.
	NotType = graph.NewEntityTypeID(Namespace, "not")
	// AndType and OrType are two-input gate entities.
	AndType = graph.NewEntityTypeID(Namespace, "and")
	OrType  = graph.NewEntityTypeID(Namespace, "or")

	// Not inverts lhs into result on every entity carrying Gate.
	Not = behaviour.NewComponentBehaviourTypeID(Gate, behaviour.NewBehaviourTypeID(Namespace, "not"))
	// And and Or combine lhs and rhs.
	And = behaviour.NewEntityBehaviourTypeID(AndType, behaviour.NewBehaviourTypeID(Namespace, "and"))
	Or  = behaviour.NewEntityBehaviourTypeID(OrType, behaviour.NewBehaviourTypeID(Namespace, "or"))
)

// Plugin contributes the logical gate types and behaviours.
type Plugin struct{}

// New constructs a logical plugin.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return Namespace }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

func binaryType(ty graph.EntityTypeID, description string) graph.EntityType {
	return graph.EntityType{
		Ty:          ty,
		Description: description,
		Properties: []graph.PropertyType{
			graph.InputProperty(PropertyLHS, graph.DataTypeBool),
			graph.InputProperty(PropertyRHS, graph.DataTypeBool),
			graph.OutputProperty(PropertyResult, graph.DataTypeBool),
		},
	}
}

// Register contributes the gate component, the gate entity types and the
// behaviours.
func (Plugin) Register(registry pluginapi.Registry) error {
	return errors.Join(
		registry.RegisterComponent(graph.Component{
			Ty:          Gate,
			Description: "Boolean gate with one input and a result",
			Properties: []graph.PropertyType{
				graph.InputProperty(PropertyLHS, graph.DataTypeBool),
				graph.OutputProperty(PropertyResult, graph.DataTypeBool),
			},
		}),
		registry.RegisterEntityType(graph.EntityType{Ty: NotType, Description: "Inverts lhs", Components: []graph.ComponentTypeID{Gate}}),
		registry.RegisterEntityType(binaryType(AndType, "lhs and rhs")),
		registry.RegisterEntityType(binaryType(OrType, "lhs or rhs")),
		registry.RegisterEntityComponentBehaviour(Not, behaviour.NewFactory(Not, newGate(func(in []bool) bool { return !in[0] }, PropertyLHS))),
		registry.RegisterEntityBehaviour(And, behaviour.NewFactory(And, newGate(func(in []bool) bool { return in[0] && in[1] }, PropertyLHS, PropertyRHS))),
		registry.RegisterEntityBehaviour(Or, behaviour.NewFactory(Or, newGate(func(in []bool) bool { return in[0] || in[1] }, PropertyLHS, PropertyRHS))),
	)
}

var _ pluginapi.Plugin = Plugin{}

type gate struct {
	behaviour.NoopTransitions
	instance  reactive.Instance
	observers *behaviour.ObserverContainer
	inputs    []string
	op        func([]bool) bool
}

func newGate(op func([]bool) bool, inputs ...string) behaviour.Constructor {
	return func(instance reactive.Instance, observers *behaviour.ObserverContainer) (behaviour.Transitions, error) {
		if _, err := behaviour.AsEntity(instance); err != nil {
			return nil, err
		}
		return &gate{instance: instance, observers: observers, inputs: inputs, op: op}, nil
	}
}

func (g *gate) Validate() error {
	for _, name := range append([]string{PropertyResult}, g.inputs...) {
		if err := behaviour.ValidatePropertyType(g.instance, name, graph.DataTypeBool); err != nil {
			return err
		}
	}
	return nil
}

func (g *gate) Init() error { return g.compute() }

func (g *gate) Connect() error {
	for _, name := range g.inputs {
		if _, err := g.observers.Observe(name, func(any) { _ = g.compute() }); err != nil {
			return err
		}
	}
	return nil
}

func (g *gate) compute() error {
	values := make([]bool, len(g.inputs))
	for i, name := range g.inputs {
		p, ok := g.instance.Property(name)
		if !ok {
			return reactive.ErrPropertyNotFound
		}
		values[i], _ = p.AsBool()
	}
	return g.instance.Set(PropertyResult, g.op(values))
}
