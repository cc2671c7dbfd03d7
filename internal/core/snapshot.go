package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reactivegraph/internal/infra/blob"
	"reactivegraph/internal/infra/persistence"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/reactive"
)

// exportConcurrency bounds parallel blob writes during export.
const exportConcurrency = 8

// Snapshot captures every instance in the arena: properties, components and
// behaviour markers.
func (s *Service) Snapshot() persistence.Snapshot {
	snap := persistence.Snapshot{
		Version:   persistence.SnapshotVersion,
		SavedAt:   s.clock.Now(),
		Entities:  []persistence.EntityRecord{},
		Relations: []persistence.RelationRecord{},
	}
	for _, e := range s.arena.Entities() {
		snap.Entities = append(snap.Entities, persistence.EntityRecord{
			ID:          e.UUID(),
			Type:        e.EntityType().String(),
			Name:        e.Name(),
			Description: e.Description(),
			Components:  componentStrings(e.Components()),
			Behaviours:  markerStrings(e.Behaviours()),
			Properties:  propertyRecords(e.PropertyContainer()),
		})
	}
	for _, r := range s.arena.Relations() {
		snap.Relations = append(snap.Relations, persistence.RelationRecord{
			Outbound:    r.OutboundID(),
			Type:        r.InstanceType().String(),
			Inbound:     r.InboundID(),
			Name:        r.Name(),
			Description: r.Description(),
			Components:  componentStrings(r.Components()),
			Behaviours:  markerStrings(r.Behaviours()),
			Properties:  propertyRecords(r.PropertyContainer()),
		})
	}
	return snap
}

func componentStrings(in []graph.ComponentTypeID) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, c.String())
	}
	return out
}

func markerStrings(in []graph.NamespacedType) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		out = append(out, b.String())
	}
	return out
}

func propertyRecords(props *reactive.Properties) []persistence.PropertyRecord {
	all := props.All()
	out := make([]persistence.PropertyRecord, 0, len(all))
	for _, p := range all {
		out = append(out, persistence.PropertyRecord{Name: p.Name(), Mutability: p.Mutability(), Value: p.Get()})
	}
	return out
}

// Save writes a snapshot to the configured store.
func (s *Service) Save(ctx context.Context) error {
	return s.run(ctx, "save_snapshot", "", func(ctx context.Context) error {
		if s.snapshots == nil {
			return ErrSnapshotStoreDisabled
		}
		snap := s.Snapshot()
		if err := s.snapshots.Save(ctx, snap); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		s.logger.Info("snapshot saved", "driver", s.snapshots.Driver(), "entities", len(snap.Entities), "relations", len(snap.Relations))
		return nil
	})
}

// Restore loads the stored snapshot into an empty arena. Instances are
// re-created with their recorded properties and components; behaviours are
// re-attached from the registered factories, entities before relations.
// Every record is decoded before the arena is touched, and a failure while
// adding removes whatever the call added, so a failed restore leaves the
// arena empty.
func (s *Service) Restore(ctx context.Context) (AttachResult, error) {
	var res AttachResult
	err := s.run(ctx, "restore_snapshot", "", func(ctx context.Context) error {
		if s.snapshots == nil {
			return ErrSnapshotStoreDisabled
		}
		if entities, relations := s.arena.Len(); entities+relations > 0 {
			return ErrArenaNotEmpty
		}
		snap, err := s.snapshots.Load(ctx)
		if err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		entities := make([]*reactive.Entity, 0, len(snap.Entities))
		for _, rec := range snap.Entities {
			e, err := s.buildEntity(rec)
			if err != nil {
				return fmt.Errorf("restore entity %s: %w", rec.ID, err)
			}
			entities = append(entities, e)
		}
		relations := make([]*reactive.Relation, 0, len(snap.Relations))
		for _, rec := range snap.Relations {
			r, err := s.buildRelation(rec)
			if err != nil {
				return fmt.Errorf("restore relation %s: %w", rec.Type, err)
			}
			relations = append(relations, r)
		}

		var (
			addedEntities  []*reactive.Entity
			addedRelations []*reactive.Relation
		)
		rollback := func(cause error) error {
			for i := len(addedRelations) - 1; i >= 0; i-- {
				_ = s.deleteRelation(addedRelations[i].ID())
			}
			for i := len(addedEntities) - 1; i >= 0; i-- {
				_ = s.removeEntity(addedEntities[i].UUID())
			}
			s.logger.Warn("snapshot restore rolled back", "entities", len(addedEntities), "relations", len(addedRelations), "error", cause)
			return cause
		}
		for _, e := range entities {
			r, err := s.addEntity(e)
			if err != nil {
				return rollback(fmt.Errorf("restore entity %s: %w", e.ID(), err))
			}
			addedEntities = append(addedEntities, e)
			res.merge(r)
		}
		for _, rel := range relations {
			r, err := s.addRelation(rel)
			if err != nil {
				return rollback(fmt.Errorf("restore relation %s: %w", rel.ID(), err))
			}
			addedRelations = append(addedRelations, rel)
			res.merge(r)
		}
		s.logger.Info("snapshot restored", "entities", len(entities), "relations", len(relations), "attached", res.Attached)
		return nil
	})
	if err != nil {
		return AttachResult{}, err
	}
	return res, nil
}

func (s *Service) recordOptions(name, description string, components []string, props []persistence.PropertyRecord) ([]reactive.Option, error) {
	opts := s.instanceOptions([]reactive.Option{reactive.WithName(name), reactive.WithDescription(description)})
	for _, c := range components {
		nt, err := graph.ParseNamespacedType(c)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reactive.WithComponents(graph.ComponentTypeID{NamespacedType: nt}))
	}
	for _, p := range props {
		opts = append(opts, reactive.WithProperty(p.Name, p.Mutability, p.Value))
	}
	return opts, nil
}

func (s *Service) buildEntity(rec persistence.EntityRecord) (*reactive.Entity, error) {
	nt, err := graph.ParseNamespacedType(rec.Type)
	if err != nil {
		return nil, err
	}
	opts, err := s.recordOptions(rec.Name, rec.Description, rec.Components, rec.Properties)
	if err != nil {
		return nil, err
	}
	return reactive.NewEntity(graph.EntityTypeID{NamespacedType: nt}, append(opts, reactive.WithID(rec.ID))...)
}

func (s *Service) buildRelation(rec persistence.RelationRecord) (*reactive.Relation, error) {
	ty, err := graph.ParseRelationInstanceTypeID(rec.Type)
	if err != nil {
		return nil, err
	}
	opts, err := s.recordOptions(rec.Name, rec.Description, rec.Components, rec.Properties)
	if err != nil {
		return nil, err
	}
	return reactive.NewRelation(rec.Outbound, ty, rec.Inbound, s.arena, opts...)
}

// ExportManifest lists the objects written by ExportSnapshot.
type ExportManifest struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	Entities  []string  `json:"entities"`
	Relations []string  `json:"relations"`
}

// ExportSnapshot writes the current snapshot to the blob store as one JSON
// object per instance under exports/<id>/, followed by manifest.json. An
// empty id is replaced by a random one.
func (s *Service) ExportSnapshot(ctx context.Context, id string) (ExportManifest, error) {
	if id == "" {
		id = uuid.NewString()
	}
	var manifest ExportManifest
	err := s.run(ctx, "export_snapshot", id, func(ctx context.Context) error {
		if s.blobs == nil {
			return ErrBlobStoreDisabled
		}
		snap := s.Snapshot()
		prefix := path.Join("exports", id)
		manifest = ExportManifest{
			ID:        id,
			Version:   snap.Version,
			SavedAt:   snap.SavedAt,
			Entities:  make([]string, len(snap.Entities)),
			Relations: make([]string, len(snap.Relations)),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(exportConcurrency)
		for i, rec := range snap.Entities {
			rec := rec
			key := path.Join(prefix, "entities", rec.ID.String()+".json")
			manifest.Entities[i] = key
			g.Go(func() error { return s.putJSON(gctx, key, rec, id) })
		}
		for i, rec := range snap.Relations {
			rec := rec
			key := path.Join(prefix, "relations", exportRelationName(rec)+".json")
			manifest.Relations[i] = key
			g.Go(func() error { return s.putJSON(gctx, key, rec, id) })
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("export %s: %w", id, err)
		}
		if err := s.putJSON(ctx, path.Join(prefix, "manifest.json"), manifest, id); err != nil {
			return fmt.Errorf("export %s: %w", id, err)
		}
		s.logger.Info("snapshot exported", "id", id, "driver", s.blobs.Driver(), "entities", len(manifest.Entities), "relations", len(manifest.Relations))
		return nil
	})
	if err != nil {
		return ExportManifest{}, err
	}
	return manifest, nil
}

// exportRelationName flattens a relation identity into a single path
// segment usable by every blob backend.
func exportRelationName(rec persistence.RelationRecord) string {
	ty := strings.ReplaceAll(rec.Type, graph.NamespaceSeparator, ".")
	return rec.Outbound.String() + "--" + ty + "--" + rec.Inbound.String()
}

func (s *Service) putJSON(ctx context.Context, key string, v any, exportID string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"export": exportID},
	})
	return err
}
