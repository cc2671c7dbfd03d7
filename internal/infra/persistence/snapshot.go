// Package persistence defines the graph snapshot format and the store
// contract shared by the memory, sqlite and postgres backends.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reactivegraph/pkg/graph"
)

// SnapshotVersion is the current snapshot layout version.
const SnapshotVersion = 1

// Driver identifies a snapshot store backend.
type Driver string

// Snapshot store drivers.
const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("persistence: no snapshot stored")

// PropertyRecord is one persisted property.
type PropertyRecord struct {
	Name       string           `json:"name"`
	Mutability graph.Mutability `json:"mutability"`
	Value      any              `json:"value"`
}

// EntityRecord is one persisted entity.
type EntityRecord struct {
	ID          uuid.UUID        `json:"id"`
	Type        string           `json:"type"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Components  []string         `json:"components,omitempty"`
	Behaviours  []string         `json:"behaviours,omitempty"`
	Properties  []PropertyRecord `json:"properties"`
}

// RelationRecord is one persisted relation. Type carries the relation type
// and the instance discriminator.
type RelationRecord struct {
	Outbound    uuid.UUID        `json:"outbound_id"`
	Type        string           `json:"type"`
	Inbound     uuid.UUID        `json:"inbound_id"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Components  []string         `json:"components,omitempty"`
	Behaviours  []string         `json:"behaviours,omitempty"`
	Properties  []PropertyRecord `json:"properties"`
}

// Snapshot is a point-in-time copy of the instance graph. Behaviour markers
// are recorded for inspection; behaviours themselves are rebuilt from the
// registered factories on restore.
type Snapshot struct {
	Version   int              `json:"version"`
	SavedAt   time.Time        `json:"saved_at"`
	Entities  []EntityRecord   `json:"entities"`
	Relations []RelationRecord `json:"relations"`
}

// Store persists snapshots.
type Store interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
	Driver() Driver
	Close() error
}

type meta struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
}

// Bucket names used by the table-backed stores.
const (
	BucketMeta      = "meta"
	BucketEntities  = "entities"
	BucketRelations = "relations"
)

// Buckets lists the bucket names in write order.
var Buckets = []string{BucketMeta, BucketEntities, BucketRelations}

// EncodeBuckets splits a snapshot into JSON payloads keyed by bucket.
func EncodeBuckets(snapshot Snapshot) (map[string][]byte, error) {
	if snapshot.Version == 0 {
		snapshot.Version = SnapshotVersion
	}
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case BucketMeta:
			data, err = json.Marshal(meta{Version: snapshot.Version, SavedAt: snapshot.SavedAt})
		case BucketEntities:
			data, err = json.Marshal(nonNil(snapshot.Entities))
		case BucketRelations:
			data, err = json.Marshal(nonNil(snapshot.Relations))
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds a snapshot from bucket payloads. Unknown buckets
// are ignored; an empty set yields ErrNoSnapshot.
func DecodeBuckets(payloads map[string][]byte) (Snapshot, error) {
	if len(payloads) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	var snapshot Snapshot
	for bucket, payload := range payloads {
		if len(payload) == 0 {
			continue
		}
		var err error
		switch bucket {
		case BucketMeta:
			var m meta
			if err = json.Unmarshal(payload, &m); err == nil {
				snapshot.Version, snapshot.SavedAt = m.Version, m.SavedAt
			}
		case BucketEntities:
			err = json.Unmarshal(payload, &snapshot.Entities)
		case BucketRelations:
			err = json.Unmarshal(payload, &snapshot.Relations)
		}
		if err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if snapshot.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("snapshot version %d not supported", snapshot.Version)
	}
	return snapshot, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
