package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"reactivegraph/internal/infra/blob"
	"reactivegraph/internal/infra/persistence"
	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/pluginapi"
	"reactivegraph/pkg/reactive"
)

// Service is the behaviour system: it owns the type registry, the instance
// arena, the four behaviour managers and the installed plugins.
type Service struct {
	types *graph.TypeRegistry
	arena *reactive.Arena

	entities           *EntityBehaviourManager
	entityComponents   *EntityComponentBehaviourManager
	relations          *RelationBehaviourManager
	relationComponents *RelationComponentBehaviourManager

	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock

	snapshots persistence.Store
	blobs     blob.Store

	propagationLimit int

	pluginMu sync.Mutex
	plugins  map[string]PluginMetadata
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used by the service and its managers.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit recorder.
func WithAuditRecorder(audit AuditRecorder) ServiceOption {
	return func(s *Service) {
		if audit != nil {
			s.audit = audit
		}
	}
}

// WithClock overrides the clock used for audit and snapshot timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSnapshotStore enables Save and Restore.
func WithSnapshotStore(store persistence.Store) ServiceOption {
	return func(s *Service) { s.snapshots = store }
}

// WithBlobStore enables ExportSnapshot.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(s *Service) { s.blobs = store }
}

// WithPropagationLimit bounds nested observer dispatch on every instance the
// service creates. 0 means unlimited.
func WithPropagationLimit(limit int) ServiceOption {
	return func(s *Service) { s.propagationLimit = limit }
}

// WithTypeRegistry shares an existing type registry.
func WithTypeRegistry(types *graph.TypeRegistry) ServiceOption {
	return func(s *Service) {
		if types != nil {
			s.types = types
		}
	}
}

// NewService constructs an empty behaviour system.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		types:   graph.NewTypeRegistry(),
		arena:   reactive.NewArena(),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		clock:   systemClock{},
		plugins: make(map[string]PluginMetadata),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.entities = NewEntityBehaviourManager(s.arena.Entities)
	s.entityComponents = NewEntityComponentBehaviourManager(s.arena.Entities)
	s.relations = NewRelationBehaviourManager(s.arena.Relations)
	s.relationComponents = NewRelationComponentBehaviourManager(s.arena.Relations)

	entityExists := func(e *reactive.Entity) bool {
		cur, ok := s.arena.Entity(e.UUID())
		return ok && cur == e
	}
	relationExists := func(r *reactive.Relation) bool {
		cur, ok := s.arena.Relation(r.ID())
		return ok && cur == r
	}
	s.entities.observe(s.logger, s.metrics)
	s.entities.track(entityExists)
	s.entityComponents.observe(s.logger, s.metrics)
	s.entityComponents.track(entityExists)
	s.relations.observe(s.logger, s.metrics)
	s.relations.track(relationExists)
	s.relationComponents.observe(s.logger, s.metrics)
	s.relationComponents.track(relationExists)
	return s
}

// Types returns the type registry.
func (s *Service) Types() *graph.TypeRegistry { return s.types }

// Arena returns the live instance index.
func (s *Service) Arena() *reactive.Arena { return s.arena }

// EntityBehaviours returns the entity behaviour manager.
func (s *Service) EntityBehaviours() *EntityBehaviourManager { return s.entities }

// EntityComponentBehaviours returns the entity-component behaviour manager.
func (s *Service) EntityComponentBehaviours() *EntityComponentBehaviourManager {
	return s.entityComponents
}

// RelationBehaviours returns the relation behaviour manager.
func (s *Service) RelationBehaviours() *RelationBehaviourManager { return s.relations }

// RelationComponentBehaviours returns the relation-component behaviour manager.
func (s *Service) RelationComponentBehaviours() *RelationComponentBehaviourManager {
	return s.relationComponents
}

// run wraps an operation with tracing, metrics, audit and error logging.
func (s *Service) run(ctx context.Context, op, id string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	started := s.clock.Now()
	err := fn(ctx)
	elapsed := s.clock.Now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	entry := AuditEntry{Operation: op, EntityID: id, Status: AuditStatusSuccess, Duration: elapsed, At: started}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "id", id, "error", err)
	}
	s.audit.Record(ctx, entry)
	return err
}

func (s *Service) instanceOptions(opts []reactive.Option) []reactive.Option {
	base := []reactive.Option{reactive.WithComponentProvider(s.types), reactive.WithPropagationLimit(s.propagationLimit)}
	return append(base, opts...)
}

// CreateEntity builds an entity of a registered type, adds it to the arena
// and attaches every matching entity and entity-component behaviour.
func (s *Service) CreateEntity(ctx context.Context, ty graph.EntityTypeID, opts ...reactive.Option) (*reactive.Entity, AttachResult, error) {
	var (
		created *reactive.Entity
		res     AttachResult
	)
	err := s.run(ctx, "create_entity", ty.String(), func(context.Context) error {
		et, ok := s.types.EntityType(ty)
		if !ok {
			return fmt.Errorf("entity type %s: %w", ty, graph.ErrTypeNotFound)
		}
		e, err := reactive.NewEntityFromType(et, s.types, s.instanceOptions(opts)...)
		if err != nil {
			return err
		}
		res, err = s.addEntity(e)
		created = e
		return err
	})
	if err != nil {
		return nil, AttachResult{}, err
	}
	return created, res, nil
}

func (s *Service) addEntity(e *reactive.Entity) (AttachResult, error) {
	if err := s.arena.AddEntity(e); err != nil {
		return AttachResult{}, err
	}
	res := s.entities.AddBehaviours(e)
	res.merge(s.entityComponents.AddBehaviours(e))
	return res, nil
}

// DeleteEntity deletes the relations touching the entity, removes it from
// the arena and detaches its behaviours.
func (s *Service) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	return s.run(ctx, "delete_entity", id.String(), func(context.Context) error {
		return s.removeEntity(id)
	})
}

func (s *Service) removeEntity(id uuid.UUID) error {
	if _, ok := s.arena.Entity(id); !ok {
		return ErrNotFound{Entity: "entity", ID: id.String()}
	}
	for _, r := range s.arena.RelationsOf(id) {
		if err := s.deleteRelation(r.ID()); err != nil && !errors.Is(err, reactive.ErrInstanceNotFound) {
			return err
		}
	}
	if _, err := s.arena.RemoveEntity(id); err != nil {
		return err
	}
	n := s.entities.RemoveBehavioursByID(id.String())
	n += s.entityComponents.RemoveBehavioursByID(id.String())
	s.logger.Debug("entity deleted", "id", id, "detached", n)
	return nil
}

// CreateRelation builds a relation of a registered type between two
// entities in the arena and attaches every matching relation and
// relation-component behaviour.
func (s *Service) CreateRelation(ctx context.Context, outbound uuid.UUID, ty graph.RelationInstanceTypeID, inbound uuid.UUID, opts ...reactive.Option) (*reactive.Relation, AttachResult, error) {
	var (
		created *reactive.Relation
		res     AttachResult
	)
	err := s.run(ctx, "create_relation", ty.String(), func(context.Context) error {
		rt, ok := s.types.RelationType(ty.Ty)
		if !ok {
			return fmt.Errorf("relation type %s: %w", ty.Ty, graph.ErrTypeNotFound)
		}
		if err := s.checkEndpoint(outbound, rt.OutboundType); err != nil {
			return fmt.Errorf("relation %s outbound: %w", ty, err)
		}
		if err := s.checkEndpoint(inbound, rt.InboundType); err != nil {
			return fmt.Errorf("relation %s inbound: %w", ty, err)
		}
		r, err := reactive.NewRelationFromType(rt, outbound, ty.Instance, inbound, s.arena, s.types, s.instanceOptions(opts)...)
		if err != nil {
			return err
		}
		res, err = s.addRelation(r)
		created = r
		return err
	})
	if err != nil {
		return nil, AttachResult{}, err
	}
	return created, res, nil
}

func (s *Service) checkEndpoint(id uuid.UUID, want graph.EntityTypeID) error {
	e, ok := s.arena.Entity(id)
	if !ok {
		return ErrNotFound{Entity: "entity", ID: id.String()}
	}
	if !want.IsZero() && e.EntityType() != want {
		return fmt.Errorf("entity %s is %s, want %s", id, e.EntityType(), want)
	}
	return nil
}

func (s *Service) addRelation(r *reactive.Relation) (AttachResult, error) {
	if err := s.arena.AddRelation(r); err != nil {
		return AttachResult{}, err
	}
	res := s.relations.AddBehaviours(r)
	res.merge(s.relationComponents.AddBehaviours(r))
	return res, nil
}

// DeleteRelation removes a relation from the arena and detaches its
// behaviours.
func (s *Service) DeleteRelation(ctx context.Context, key string) error {
	return s.run(ctx, "delete_relation", key, func(context.Context) error {
		return s.deleteRelation(key)
	})
}

func (s *Service) deleteRelation(key string) error {
	if _, err := s.arena.RemoveRelation(key); err != nil {
		if errors.Is(err, reactive.ErrInstanceNotFound) {
			return ErrNotFound{Entity: "relation", ID: key}
		}
		return err
	}
	s.relations.RemoveBehavioursByID(key)
	s.relationComponents.RemoveBehavioursByID(key)
	return nil
}

func (s *Service) instance(id string) (reactive.Instance, error) {
	inst, ok := s.arena.Instance(id)
	if !ok {
		return nil, ErrNotFound{Entity: "instance", ID: id}
	}
	return inst, nil
}

// AddComponent adds a component to an instance, creating the component's
// properties the instance lacks, and attaches the behaviours registered for
// the component.
func (s *Service) AddComponent(ctx context.Context, id string, component graph.ComponentTypeID) (AttachResult, error) {
	var res AttachResult
	err := s.run(ctx, "add_component", id, func(context.Context) error {
		inst, err := s.instance(id)
		if err != nil {
			return err
		}
		c, ok := s.types.Component(component)
		if !ok {
			return fmt.Errorf("component %s: %w", component, graph.ErrTypeNotFound)
		}
		for _, p := range c.Properties {
			if inst.HasProperty(p.Name) {
				continue
			}
			if err := inst.AddProperty(p.Name, p.Mutability, p.DataType.DefaultValue()); err != nil && !errors.Is(err, reactive.ErrPropertyAlreadyExists) {
				return err
			}
		}
		inst.AddComponent(component)
		switch v := inst.(type) {
		case *reactive.Entity:
			res = s.entityComponents.AddBehavioursToComponent(v, component)
		case *reactive.Relation:
			res = s.relationComponents.AddBehavioursToComponent(v, component)
		}
		return nil
	})
	return res, err
}

// RemoveComponent detaches the behaviours an instance holds through a
// component, then removes the component. Properties stay on the instance.
func (s *Service) RemoveComponent(ctx context.Context, id string, component graph.ComponentTypeID) (int, error) {
	n := 0
	err := s.run(ctx, "remove_component", id, func(context.Context) error {
		inst, err := s.instance(id)
		if err != nil {
			return err
		}
		switch v := inst.(type) {
		case *reactive.Entity:
			n = s.entityComponents.RemoveBehavioursFromComponent(v, component)
		case *reactive.Relation:
			n = s.relationComponents.RemoveBehavioursFromComponent(v, component)
		}
		inst.RemoveComponent(component)
		return nil
	})
	return n, err
}

// Get reads a property value.
func (s *Service) Get(id, name string) (any, error) {
	inst, err := s.instance(id)
	if err != nil {
		return nil, err
	}
	v, ok := inst.Get(name)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", id, name, reactive.ErrPropertyNotFound)
	}
	return v, nil
}

// Set writes a property value and propagates it to observers.
func (s *Service) Set(ctx context.Context, id, name string, value any) error {
	return s.run(ctx, "set_property", id, func(context.Context) error {
		inst, err := s.instance(id)
		if err != nil {
			return err
		}
		return inst.Set(name, value)
	})
}

// AddBehaviour attaches one registered behaviour to an instance. The
// manager is chosen by the key family and the instance kind.
func (s *Service) AddBehaviour(ctx context.Context, id string, ty behaviour.TypeKey) error {
	return s.run(ctx, "add_behaviour", id, func(context.Context) error {
		inst, err := s.instance(id)
		if err != nil {
			return err
		}
		switch key := ty.(type) {
		case behaviour.EntityBehaviourTypeID:
			e, err := behaviour.AsEntity(inst)
			if err != nil {
				return behaviour.NewCreationError(behaviour.ErrInstanceKindMismatch, key, err)
			}
			return s.entities.AddBehaviour(e, key)
		case behaviour.RelationBehaviourTypeID:
			r, err := behaviour.AsRelation(inst)
			if err != nil {
				return behaviour.NewCreationError(behaviour.ErrInstanceKindMismatch, key, err)
			}
			return s.relations.AddBehaviour(r, key)
		case behaviour.ComponentBehaviourTypeID:
			switch v := inst.(type) {
			case *reactive.Entity:
				return s.entityComponents.AddBehaviour(v, key)
			case *reactive.Relation:
				return s.relationComponents.AddBehaviour(v, key)
			}
		}
		return fmt.Errorf("behaviour key %T: %w", ty, ErrBehaviourNotRegistered)
	})
}

// RemoveBehaviour detaches one behaviour from an instance.
func (s *Service) RemoveBehaviour(ctx context.Context, id string, ty behaviour.TypeKey) error {
	return s.run(ctx, "remove_behaviour", id, func(context.Context) error {
		inst, err := s.instance(id)
		if err != nil {
			return err
		}
		switch key := ty.(type) {
		case behaviour.EntityBehaviourTypeID:
			if e, ok := inst.(*reactive.Entity); ok {
				return s.entities.RemoveBehaviour(e, key)
			}
		case behaviour.RelationBehaviourTypeID:
			if r, ok := inst.(*reactive.Relation); ok {
				return s.relations.RemoveBehaviour(r, key)
			}
		case behaviour.ComponentBehaviourTypeID:
			switch v := inst.(type) {
			case *reactive.Entity:
				return s.entityComponents.RemoveBehaviour(v, key)
			case *reactive.Relation:
				return s.relationComponents.RemoveBehaviour(v, key)
			}
		}
		return fmt.Errorf("%s on %s: %w", ty, id, ErrBehaviourNotFound)
	})
}

// GetBehaviours lists the behaviour keys live on an instance across the
// families that apply to it.
func (s *Service) GetBehaviours(id string) ([]behaviour.TypeKey, error) {
	inst, err := s.instance(id)
	if err != nil {
		return nil, err
	}
	var out []behaviour.TypeKey
	switch v := inst.(type) {
	case *reactive.Entity:
		out = appendTypeKeys(out, s.entities.GetAll(v))
		out = appendTypeKeys(out, s.entityComponents.GetAll(v))
	case *reactive.Relation:
		out = appendTypeKeys(out, s.relations.GetAll(v))
		out = appendTypeKeys(out, s.relationComponents.GetAll(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func appendTypeKeys[K Key](out []behaviour.TypeKey, keys []K) []behaviour.TypeKey {
	for _, k := range keys {
		out = append(out, k)
	}
	return out
}

// GetInstancesByBehaviour lists the instances on which ty is live. A
// component key covers both entities and relations.
func (s *Service) GetInstancesByBehaviour(ty behaviour.TypeKey) []reactive.Instance {
	var out []reactive.Instance
	switch key := ty.(type) {
	case behaviour.EntityBehaviourTypeID:
		out = appendInstances(out, s.entities.GetInstancesByBehaviour(key))
	case behaviour.RelationBehaviourTypeID:
		out = appendInstances(out, s.relations.GetInstancesByBehaviour(key))
	case behaviour.ComponentBehaviourTypeID:
		out = appendInstances(out, s.entityComponents.GetInstancesByBehaviour(key))
		out = appendInstances(out, s.relationComponents.GetInstancesByBehaviour(key))
	}
	return out
}

func appendInstances[I reactive.Instance](out []reactive.Instance, in []I) []reactive.Instance {
	for _, inst := range in {
		out = append(out, inst)
	}
	return out
}

// InstallPlugin registers a plugin's types and behaviours. Behaviours are
// applied per family as a batch and retrofitted onto existing instances; if
// any family rejects its batch the families already applied are rolled
// back. Types already present in the registry are kept as they are; types
// the call added are removed again when it fails.
func (s *Service) InstallPlugin(ctx context.Context, plugin pluginapi.Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	var meta PluginMetadata
	err := s.run(ctx, "install_plugin", plugin.Name(), func(context.Context) error {
		s.pluginMu.Lock()
		defer s.pluginMu.Unlock()
		if _, ok := s.plugins[plugin.Name()]; ok {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), ErrPluginAlreadyInstalled)
		}

		registry := NewPluginRegistry()
		if err := plugin.Register(registry); err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
		meta = newPluginMetadata(plugin, registry)
		if err := s.checkBehavioursFree(meta); err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
		undoTypes, err := s.registerTypes(registry)
		if err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
		res, err := s.registerBehaviours(registry)
		if err != nil {
			undoTypes()
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
		meta.Attached = res.Attached
		s.plugins[plugin.Name()] = meta
		s.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version, "behaviours", len(meta.Behaviours), "attached", res.Attached, "skipped", len(res.Skipped))
		return nil
	})
	if err != nil {
		return PluginMetadata{}, err
	}
	return meta, nil
}

func (s *Service) checkBehavioursFree(meta PluginMetadata) error {
	if err := firstRegistered(s.entities.Registry(), meta.entity); err != nil {
		return err
	}
	if err := firstRegistered(s.entityComponents.Registry(), meta.entityComponent); err != nil {
		return err
	}
	if err := firstRegistered(s.relations.Registry(), meta.relation); err != nil {
		return err
	}
	return firstRegistered(s.relationComponents.Registry(), meta.relationComponent)
}

func firstRegistered[K Key](r *Registry[K], keys []K) error {
	for _, k := range keys {
		if r.Has(k) {
			return fmt.Errorf("%s behaviour %s: %w", r.Family(), k, ErrBehaviourAlreadyRegistered)
		}
	}
	return nil
}

// registerTypes adds the plugin's types, skipping those already registered.
// The returned func removes the ones this call added.
func (s *Service) registerTypes(registry *PluginRegistry) (func(), error) {
	var added []func()
	undo := func() {
		for i := len(added) - 1; i >= 0; i-- {
			added[i]()
		}
	}
	for _, c := range registry.components {
		switch err := s.types.RegisterComponent(c); {
		case err == nil:
			ty := c.Ty
			added = append(added, func() { s.types.UnregisterComponent(ty) })
		case !errors.Is(err, graph.ErrTypeAlreadyRegistered):
			undo()
			return nil, err
		}
	}
	for _, t := range registry.entityTypes {
		switch err := s.types.RegisterEntityType(t); {
		case err == nil:
			ty := t.Ty
			added = append(added, func() { s.types.UnregisterEntityType(ty) })
		case !errors.Is(err, graph.ErrTypeAlreadyRegistered):
			undo()
			return nil, err
		}
	}
	for _, t := range registry.relationTypes {
		switch err := s.types.RegisterRelationType(t); {
		case err == nil:
			ty := t.Ty
			added = append(added, func() { s.types.UnregisterRelationType(ty) })
		case !errors.Is(err, graph.ErrTypeAlreadyRegistered):
			undo()
			return nil, err
		}
	}
	return undo, nil
}

func (s *Service) registerBehaviours(registry *PluginRegistry) (AttachResult, error) {
	var res AttachResult
	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	r, err := s.entities.RegisterAll(registry.entity)
	if err != nil {
		return AttachResult{}, err
	}
	res.merge(r)
	undo = append(undo, func() { s.entities.UnregisterAll(keysOf(registry.entity)...) })

	r, err = s.entityComponents.RegisterAll(registry.entityComponent)
	if err != nil {
		rollback()
		return AttachResult{}, err
	}
	res.merge(r)
	undo = append(undo, func() { s.entityComponents.UnregisterAll(keysOf(registry.entityComponent)...) })

	r, err = s.relations.RegisterAll(registry.relation)
	if err != nil {
		rollback()
		return AttachResult{}, err
	}
	res.merge(r)
	undo = append(undo, func() { s.relations.UnregisterAll(keysOf(registry.relation)...) })

	r, err = s.relationComponents.RegisterAll(registry.relationComponent)
	if err != nil {
		rollback()
		return AttachResult{}, err
	}
	res.merge(r)
	return res, nil
}

// UninstallPlugin unregisters a plugin's behaviours and detaches every
// behaviour they created. Types stay registered; instances may still use
// them. It returns the number of detached behaviours.
func (s *Service) UninstallPlugin(ctx context.Context, name string) (int, error) {
	n := 0
	err := s.run(ctx, "uninstall_plugin", name, func(context.Context) error {
		s.pluginMu.Lock()
		defer s.pluginMu.Unlock()
		meta, ok := s.plugins[name]
		if !ok {
			return fmt.Errorf("plugin %s: %w", name, ErrPluginNotInstalled)
		}
		n += s.entities.UnregisterAll(meta.entity...)
		n += s.entityComponents.UnregisterAll(meta.entityComponent...)
		n += s.relations.UnregisterAll(meta.relation...)
		n += s.relationComponents.UnregisterAll(meta.relationComponent...)
		delete(s.plugins, name)
		s.logger.Info("plugin uninstalled", "plugin", name, "detached", n)
		return nil
	})
	return n, err
}

// RegisteredPlugins returns metadata describing installed plugins, sorted by
// name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.pluginMu.Lock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	s.pluginMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BehaviourCount returns the number of live behaviours across the four
// families.
func (s *Service) BehaviourCount() int {
	return s.entities.Count() + s.entityComponents.Count() + s.relations.Count() + s.relationComponents.Count()
}

// Shutdown detaches every live behaviour. Instances stay in the arena. It
// returns the number of detached behaviours.
func (s *Service) Shutdown(ctx context.Context) int {
	n := 0
	_ = s.run(ctx, "shutdown", "", func(context.Context) error {
		n = s.relationComponents.Shutdown() + s.relations.Shutdown() + s.entityComponents.Shutdown() + s.entities.Shutdown()
		s.logger.Info("behaviours shut down", "detached", n)
		return nil
	})
	return n
}

// Close shuts down behaviours and closes the snapshot store.
func (s *Service) Close(ctx context.Context) error {
	s.Shutdown(ctx)
	if s.snapshots != nil {
		return s.snapshots.Close()
	}
	return nil
}
