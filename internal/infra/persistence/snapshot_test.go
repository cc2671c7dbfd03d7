package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"reactivegraph/pkg/graph"
)

func sampleSnapshot() Snapshot {
	a, b := uuid.New(), uuid.New()
	return Snapshot{
		SavedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Entities: []EntityRecord{
			{ID: a, Type: "arithmetic::add", Behaviours: []string{"arithmetic::add"}, Properties: []PropertyRecord{
				{Name: "lhs", Mutability: graph.Mutable, Value: 1.0},
				{Name: "tags", Mutability: graph.Immutable, Value: []any{"x"}},
			}},
			{ID: b, Type: "arithmetic::add", Properties: []PropertyRecord{}},
		},
		Relations: []RelationRecord{
			{Outbound: a, Type: "connector::default_connector__a", Inbound: b, Properties: []PropertyRecord{}},
		},
	}
}

func TestBucketsRoundTrip(t *testing.T) {
	in := sampleSnapshot()
	buckets, err := EncodeBuckets(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buckets) != len(Buckets) {
		t.Fatalf("expected %d buckets, got %d", len(Buckets), len(buckets))
	}
	out, err := DecodeBuckets(buckets)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Version != SnapshotVersion {
		t.Fatalf("expected version defaulted to %d, got %d", SnapshotVersion, out.Version)
	}
	if !out.SavedAt.Equal(in.SavedAt) {
		t.Fatalf("saved at mismatch: %v", out.SavedAt)
	}
	if len(out.Entities) != 2 || len(out.Relations) != 1 {
		t.Fatalf("unexpected record counts: %+v", out)
	}
	if got := out.Entities[0].Properties[0].Value; got != 1.0 {
		t.Fatalf("expected lhs 1, got %v", got)
	}
	if out.Entities[0].Properties[1].Mutability != graph.Immutable {
		t.Fatalf("mutability lost")
	}
	if out.Relations[0].Outbound != in.Relations[0].Outbound {
		t.Fatalf("relation endpoint lost")
	}
}

func TestDecodeBucketsErrors(t *testing.T) {
	if _, err := DecodeBuckets(nil); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if _, err := DecodeBuckets(map[string][]byte{BucketEntities: []byte("{")}); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := DecodeBuckets(map[string][]byte{BucketMeta: []byte(`{"version":99}`)}); err == nil {
		t.Fatalf("expected version error")
	}
	empty, err := EncodeBuckets(Snapshot{})
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	if string(empty[BucketEntities]) != "[]" {
		t.Fatalf("expected empty array payload, got %s", empty[BucketEntities])
	}
}
