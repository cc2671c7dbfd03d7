package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsRecorderCounts(t *testing.T) {
	rec := NewPrometheusMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "create_entity", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_entity", true, 7*time.Millisecond)
	rec.Observe(ctx, "create_entity", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)
	rec.BehaviourAttached("entity", 3)
	rec.BehaviourDetached("entity", 1)
	rec.AttachFailed("entity", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.operations.WithLabelValues("create_entity", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("create_entity", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.live.WithLabelValues("entity")))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.attached.WithLabelValues("entity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.detached.WithLabelValues("entity")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.failed.WithLabelValues("entity")))

	count, err := testutil.GatherAndCount(rec.Registry(), "reactivegraph_runtime_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one histogram series per operation")
}

func TestPrometheusMetricsRecorderExposition(t *testing.T) {
	rec := NewPrometheusMetricsRecorder("graph")
	rec.BehaviourAttached("relation", 1)

	expected := `
# HELP graph_behaviour_live Behaviours currently attached.
# TYPE graph_behaviour_live gauge
graph_behaviour_live{family="relation"} 1
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "graph_behaviour_live"))
}

func TestPrometheusMetricsRecorderThroughService(t *testing.T) {
	rec := NewPrometheusMetricsRecorder("svc")
	s := newTestService(t, WithMetricsRecorder(rec))
	_, err := s.InstallPlugin(context.Background(), behavioursPlugin())
	require.NoError(t, err)
	createNumber(t, s, "a")

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("create_entity", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.live.WithLabelValues("entity")))

	s.Shutdown(context.Background())
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.live.WithLabelValues("entity")))
}
