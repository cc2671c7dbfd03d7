// Package arithmetic provides numeric gate entities whose result follows
// their inputs.
package arithmetic

import (
	"errors"

	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/pluginapi"
	"reactivegraph/pkg/reactive"
)

// Namespace is shared by every type the plugin contributes.
const Namespace = "arithmetic"

// Property names.
const (
	PropertyLHS    = "lhs"
	PropertyRHS    = "rhs"
	PropertyResult = "result"
)

var (
	// AddType is an entity with lhs, rhs and result where result = lhs + rhs.
	AddType = graph.NewEntityTypeID(Namespace, "add")
	// IncrementType is an entity with lhs and result where result = lhs + 1.
	IncrementType = graph.NewEntityTypeID(Namespace, "increment")

	// Add is the behaviour bound to AddType.
	Add = behaviour.NewEntityBehaviourTypeID(AddType, behaviour.NewBehaviourTypeID(Namespace, "add"))
	// Increment is the behaviour bound to IncrementType.
	Increment = behaviour.NewEntityBehaviourTypeID(IncrementType, behaviour.NewBehaviourTypeID(Namespace, "increment"))
)

// Plugin contributes the arithmetic gate types and behaviours.
type Plugin struct{}

// New constructs an arithmetic plugin.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return Namespace }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register contributes the gate entity types and their behaviours.
func (Plugin) Register(registry pluginapi.Registry) error {
	return errors.Join(
		registry.RegisterEntityType(graph.EntityType{
			Ty:          AddType,
			Description: "Adds lhs and rhs",
			Properties: []graph.PropertyType{
				graph.InputProperty(PropertyLHS, graph.DataTypeNumber),
				graph.InputProperty(PropertyRHS, graph.DataTypeNumber),
				graph.OutputProperty(PropertyResult, graph.DataTypeNumber),
			},
		}),
		registry.RegisterEntityType(graph.EntityType{
			Ty:          IncrementType,
			Description: "Adds one to lhs",
			Properties: []graph.PropertyType{
				graph.InputProperty(PropertyLHS, graph.DataTypeNumber),
				graph.OutputProperty(PropertyResult, graph.DataTypeNumber),
			},
		}),
		registry.RegisterEntityBehaviour(Add, behaviour.NewFactory(Add, newGate(func(in []float64) float64 { return in[0] + in[1] }, PropertyLHS, PropertyRHS))),
		registry.RegisterEntityBehaviour(Increment, behaviour.NewFactory(Increment, newGate(func(in []float64) float64 { return in[0] + 1 }, PropertyLHS))),
	)
}

var _ pluginapi.Plugin = Plugin{}

// gate recomputes result from its inputs whenever one of them changes.
type gate struct {
	behaviour.NoopTransitions
	instance  reactive.Instance
	observers *behaviour.ObserverContainer
	inputs    []string
	op        func([]float64) float64
}

func newGate(op func([]float64) float64, inputs ...string) behaviour.Constructor {
	return func(instance reactive.Instance, observers *behaviour.ObserverContainer) (behaviour.Transitions, error) {
		return &gate{instance: instance, observers: observers, inputs: inputs, op: op}, nil
	}
}

func (g *gate) Validate() error {
	for _, name := range append([]string{PropertyResult}, g.inputs...) {
		if err := behaviour.ValidatePropertyType(g.instance, name, graph.DataTypeNumber); err != nil {
			return err
		}
	}
	return nil
}

// Init publishes the result for the current inputs.
func (g *gate) Init() error {
	return g.compute()
}

func (g *gate) Connect() error {
	for _, name := range g.inputs {
		if _, err := g.observers.Observe(name, func(any) { _ = g.compute() }); err != nil {
			return err
		}
	}
	return nil
}

func (g *gate) compute() error {
	values := make([]float64, len(g.inputs))
	for i, name := range g.inputs {
		p, ok := g.instance.Property(name)
		if !ok {
			return reactive.ErrPropertyNotFound
		}
		values[i], _ = p.AsFloat64()
	}
	return g.instance.Set(PropertyResult, g.op(values))
}
