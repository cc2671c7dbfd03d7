package logical_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivegraph/internal/core"
	"reactivegraph/pkg/graph"
	"reactivegraph/plugins/logical"
)

func TestGates(t *testing.T) {
	cases := []struct {
		name     string
		ty       graph.EntityTypeID
		lhs, rhs bool
		want     bool
	}{
		{"not false", logical.NotType, false, false, true},
		{"not true", logical.NotType, true, false, false},
		{"and", logical.AndType, true, true, true},
		{"and short", logical.AndType, true, false, false},
		{"or", logical.OrType, false, true, true},
		{"or neither", logical.OrType, false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := core.NewService()
			_, err := s.InstallPlugin(ctx, logical.New())
			require.NoError(t, err)
			e, res, err := s.CreateEntity(ctx, tc.ty)
			require.NoError(t, err)
			require.NoError(t, res.Err())

			require.NoError(t, s.Set(ctx, e.ID(), logical.PropertyLHS, tc.lhs))
			if tc.ty != logical.NotType {
				require.NoError(t, s.Set(ctx, e.ID(), logical.PropertyRHS, tc.rhs))
			}
			got, err := s.Get(e.ID(), logical.PropertyResult)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNotFollowsGateComponent(t *testing.T) {
	ctx := context.Background()
	s := core.NewService()
	_, err := s.InstallPlugin(ctx, logical.New())
	require.NoError(t, err)

	not, _, err := s.CreateEntity(ctx, logical.NotType)
	require.NoError(t, err)
	keys, err := s.GetBehaviours(not.ID())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, logical.Not.String(), keys[0].String())

	result, err := s.Get(not.ID(), logical.PropertyResult)
	require.NoError(t, err)
	assert.Equal(t, true, result, "init inverts the default false")

	n, err := s.RemoveComponent(ctx, not.ID(), logical.Gate)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.Set(ctx, not.ID(), logical.PropertyLHS, true))
	result, _ = s.Get(not.ID(), logical.PropertyResult)
	assert.Equal(t, true, result)

	_, err = s.AddComponent(ctx, not.ID(), logical.Gate)
	require.NoError(t, err)
	result, _ = s.Get(not.ID(), logical.PropertyResult)
	assert.Equal(t, false, result)
}
