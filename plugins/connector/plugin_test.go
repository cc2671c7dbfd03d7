package connector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivegraph/internal/core"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/reactive"
	"reactivegraph/plugins/arithmetic"
	"reactivegraph/plugins/connector"
)

func newRuntime(t *testing.T) *core.Service {
	t.Helper()
	s := core.NewService()
	_, err := s.InstallPlugin(context.Background(), arithmetic.New())
	require.NoError(t, err)
	_, err = s.InstallPlugin(context.Background(), connector.New())
	require.NoError(t, err)
	return s
}

func connect(t *testing.T, s *core.Service, out *reactive.Entity, outProp string, in *reactive.Entity, inProp string, opts ...reactive.Option) *reactive.Relation {
	t.Helper()
	opts = append([]reactive.Option{
		reactive.WithProperty(connector.PropertyOutboundName, graph.Mutable, outProp),
		reactive.WithProperty(connector.PropertyInboundName, graph.Mutable, inProp),
	}, opts...)
	r, res, err := s.CreateRelation(context.Background(), out.UUID(),
		graph.NewRelationInstanceTypeID(connector.DefaultConnectorType, outProp+"_"+inProp), in.UUID(), opts...)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	return r
}

func TestDefaultConnectorChainsGates(t *testing.T) {
	ctx := context.Background()
	s := newRuntime(t)
	first, _, err := s.CreateEntity(ctx, arithmetic.IncrementType)
	require.NoError(t, err)
	second, _, err := s.CreateEntity(ctx, arithmetic.AddType)
	require.NoError(t, err)
	connect(t, s, first, arithmetic.PropertyResult, second, arithmetic.PropertyLHS)
	connect(t, s, first, arithmetic.PropertyResult, second, arithmetic.PropertyRHS)

	require.NoError(t, s.Set(ctx, first.ID(), arithmetic.PropertyLHS, float64(4)))
	result, err := s.Get(second.ID(), arithmetic.PropertyResult)
	require.NoError(t, err)
	assert.Equal(t, float64(10), result)
}

func TestDefaultConnectorRequiresPropertyNames(t *testing.T) {
	ctx := context.Background()
	s := newRuntime(t)
	a, _, err := s.CreateEntity(ctx, arithmetic.IncrementType)
	require.NoError(t, err)
	b, _, err := s.CreateEntity(ctx, arithmetic.IncrementType)
	require.NoError(t, err)

	_, res, err := s.CreateRelation(ctx, a.UUID(), graph.NewRelationInstanceTypeID(connector.DefaultConnectorType, ""), b.UUID())
	require.NoError(t, err, "the relation exists even when its behaviour cannot attach")
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Err(), connector.ErrPropertyNameMissing)

	_, res, err = s.CreateRelation(ctx, a.UUID(), graph.NewRelationInstanceTypeID(connector.DefaultConnectorType, "bad"), b.UUID(),
		reactive.WithProperty(connector.PropertyOutboundName, graph.Mutable, "missing"),
		reactive.WithProperty(connector.PropertyInboundName, graph.Mutable, arithmetic.PropertyLHS))
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
}

func TestPropagationCounter(t *testing.T) {
	ctx := context.Background()
	s := newRuntime(t)
	a, _, err := s.CreateEntity(ctx, arithmetic.IncrementType)
	require.NoError(t, err)
	b, _, err := s.CreateEntity(ctx, arithmetic.IncrementType)
	require.NoError(t, err)
	r := connect(t, s, a, arithmetic.PropertyResult, b, arithmetic.PropertyLHS)

	res, err := s.AddComponent(ctx, r.ID(), connector.PropagationCounter)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attached)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Set(ctx, a.ID(), arithmetic.PropertyLHS, float64(i)))
	}
	count, err := s.Get(r.ID(), connector.PropertyPropagationCount)
	require.NoError(t, err)
	assert.Equal(t, float64(3), count)
	result, _ := s.Get(b.ID(), arithmetic.PropertyResult)
	assert.Equal(t, float64(5), result)

	n, err := s.RemoveComponent(ctx, r.ID(), connector.PropagationCounter)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.Set(ctx, a.ID(), arithmetic.PropertyLHS, float64(9)))
	count, _ = s.Get(r.ID(), connector.PropertyPropagationCount)
	assert.Equal(t, float64(3), count)
}

func TestUninstallConnectorStopsForwarding(t *testing.T) {
	ctx := context.Background()
	s := newRuntime(t)
	a, _, err := s.CreateEntity(ctx, arithmetic.IncrementType)
	require.NoError(t, err)
	b, _, err := s.CreateEntity(ctx, arithmetic.IncrementType)
	require.NoError(t, err)
	r := connect(t, s, a, arithmetic.PropertyResult, b, arithmetic.PropertyLHS)

	n, err := s.UninstallPlugin(ctx, connector.Namespace)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, r.Behaviours())

	require.NoError(t, s.Set(ctx, a.ID(), arithmetic.PropertyLHS, float64(7)))
	lhs, _ := s.Get(b.ID(), arithmetic.PropertyLHS)
	assert.Equal(t, float64(0), lhs)
	result, _ := s.Get(b.ID(), arithmetic.PropertyResult)
	assert.Equal(t, float64(1), result)
}
