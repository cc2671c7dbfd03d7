package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reactivegraph/internal/core"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/reactive"
	"reactivegraph/plugins/arithmetic"
	"reactivegraph/plugins/connector"
	"reactivegraph/plugins/logical"
)

// demoGraph holds the instances built by buildDemo.
type demoGraph struct {
	increment *reactive.Entity
	add       *reactive.Entity
	not       *reactive.Entity
	counted   *reactive.Relation
}

// buildDemo wires increment.result into both inputs of an add gate, so the
// add result is 2*(input+1), and counts propagations on one of the links.
func buildDemo(ctx context.Context, s *core.Service) (demoGraph, error) {
	var g demoGraph
	var err error
	if g.increment, _, err = s.CreateEntity(ctx, arithmetic.IncrementType, reactive.WithName("increment")); err != nil {
		return g, err
	}
	if g.add, _, err = s.CreateEntity(ctx, arithmetic.AddType, reactive.WithName("double")); err != nil {
		return g, err
	}
	if g.not, _, err = s.CreateEntity(ctx, logical.NotType, reactive.WithName("not")); err != nil {
		return g, err
	}
	for _, in := range []string{arithmetic.PropertyLHS, arithmetic.PropertyRHS} {
		r, res, err := s.CreateRelation(ctx, g.increment.UUID(),
			graph.NewRelationInstanceTypeID(connector.DefaultConnectorType, in), g.add.UUID(),
			reactive.WithProperty(connector.PropertyOutboundName, graph.Mutable, arithmetic.PropertyResult),
			reactive.WithProperty(connector.PropertyInboundName, graph.Mutable, in))
		if err != nil {
			return g, err
		}
		if err := res.Err(); err != nil {
			return g, err
		}
		if g.counted == nil {
			g.counted = r
		}
	}
	res, err := s.AddComponent(ctx, g.counted.ID(), connector.PropagationCounter)
	if err != nil {
		return g, err
	}
	return g, res.Err()
}

func (a *app) demoCmd() *cobra.Command {
	var (
		input float64
		save  bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Build a small graph from the reference plugins and propagate one value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, s *core.Service) error {
				g, err := buildDemo(ctx, s)
				if err != nil {
					return err
				}
				if err := s.Set(ctx, g.increment.ID(), arithmetic.PropertyLHS, input); err != nil {
					return err
				}
				if err := s.Set(ctx, g.not.ID(), logical.PropertyLHS, true); err != nil {
					return err
				}
				for _, line := range []struct {
					label string
					id    string
					prop  string
				}{
					{"increment.result", g.increment.ID(), arithmetic.PropertyResult},
					{"double.result", g.add.ID(), arithmetic.PropertyResult},
					{"not.result", g.not.ID(), logical.PropertyResult},
					{"propagations", g.counted.ID(), connector.PropertyPropagationCount},
				} {
					v, err := s.Get(line.id, line.prop)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "%s = %v\n", line.label, v)
				}
				fmt.Fprintf(a.out, "behaviours = %d\n", s.BehaviourCount())
				if save {
					return s.Save(ctx)
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&input, "input", 20, "value written to increment.lhs")
	cmd.Flags().BoolVar(&save, "save", false, "save the resulting graph to the configured snapshot store")
	return cmd
}
