package core

import (
	"context"
	"errors"

	"reactivegraph/internal/config"
)

// OpenService builds a Service from configuration: propagation limit,
// snapshot and blob stores, and the Prometheus recorder when metrics are
// enabled. Explicit options are applied after the configured ones.
func OpenService(ctx context.Context, cfg config.Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	snapshots, err := OpenSnapshotStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	blobs, err := OpenBlobStore(ctx, cfg.Blob)
	if err != nil {
		if snapshots != nil {
			err = errors.Join(err, snapshots.Close())
		}
		return nil, err
	}
	base := []ServiceOption{
		WithPropagationLimit(cfg.Propagation.Limit),
		WithBlobStore(blobs),
	}
	if snapshots != nil {
		base = append(base, WithSnapshotStore(snapshots))
	}
	if cfg.Metrics.Enabled {
		base = append(base, WithMetricsRecorder(NewPrometheusMetricsRecorder(cfg.Metrics.Namespace)))
	}
	return NewService(append(base, opts...)...), nil
}
