package core

import (
	"fmt"
	"sort"

	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/pluginapi"
)

// PluginRegistry accumulates plugin contributions during registration.
// Nothing reaches the runtime until the whole plugin registered cleanly.
type PluginRegistry struct {
	components    []graph.Component
	entityTypes   []graph.EntityType
	relationTypes []graph.RelationType

	entity            map[behaviour.EntityBehaviourTypeID]behaviour.Factory
	entityComponent   map[behaviour.ComponentBehaviourTypeID]behaviour.Factory
	relation          map[behaviour.RelationBehaviourTypeID]behaviour.Factory
	relationComponent map[behaviour.ComponentBehaviourTypeID]behaviour.Factory
}

var _ pluginapi.Registry = (*PluginRegistry)(nil)

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		entity:            make(map[behaviour.EntityBehaviourTypeID]behaviour.Factory),
		entityComponent:   make(map[behaviour.ComponentBehaviourTypeID]behaviour.Factory),
		relation:          make(map[behaviour.RelationBehaviourTypeID]behaviour.Factory),
		relationComponent: make(map[behaviour.ComponentBehaviourTypeID]behaviour.Factory),
	}
}

// RegisterComponent records a component contributed by the plugin.
func (r *PluginRegistry) RegisterComponent(component graph.Component) error {
	if component.Ty.IsZero() {
		return fmt.Errorf("component type required")
	}
	r.components = append(r.components, component)
	return nil
}

// RegisterEntityType records an entity type contributed by the plugin.
func (r *PluginRegistry) RegisterEntityType(entityType graph.EntityType) error {
	if entityType.Ty.IsZero() {
		return fmt.Errorf("entity type required")
	}
	r.entityTypes = append(r.entityTypes, entityType)
	return nil
}

// RegisterRelationType records a relation type contributed by the plugin.
func (r *PluginRegistry) RegisterRelationType(relationType graph.RelationType) error {
	if relationType.Ty.IsZero() {
		return fmt.Errorf("relation type required")
	}
	r.relationTypes = append(r.relationTypes, relationType)
	return nil
}

// RegisterEntityBehaviour records an entity behaviour factory.
func (r *PluginRegistry) RegisterEntityBehaviour(ty behaviour.EntityBehaviourTypeID, factory behaviour.Factory) error {
	return addFactory(r.entity, ty, factory)
}

// RegisterEntityComponentBehaviour records an entity-component behaviour factory.
func (r *PluginRegistry) RegisterEntityComponentBehaviour(ty behaviour.ComponentBehaviourTypeID, factory behaviour.Factory) error {
	return addFactory(r.entityComponent, ty, factory)
}

// RegisterRelationBehaviour records a relation behaviour factory.
func (r *PluginRegistry) RegisterRelationBehaviour(ty behaviour.RelationBehaviourTypeID, factory behaviour.Factory) error {
	return addFactory(r.relation, ty, factory)
}

// RegisterRelationComponentBehaviour records a relation-component behaviour factory.
func (r *PluginRegistry) RegisterRelationComponentBehaviour(ty behaviour.ComponentBehaviourTypeID, factory behaviour.Factory) error {
	return addFactory(r.relationComponent, ty, factory)
}

func addFactory[K Key](dst map[K]behaviour.Factory, ty K, factory behaviour.Factory) error {
	if factory == nil {
		return fmt.Errorf("behaviour %s: factory cannot be nil", ty)
	}
	if _, exists := dst[ty]; exists {
		return fmt.Errorf("behaviour %s: %w", ty, ErrBehaviourAlreadyRegistered)
	}
	dst[ty] = factory
	return nil
}

// Behaviours returns the string form of every contributed behaviour key,
// prefixed by family.
func (r *PluginRegistry) Behaviours() []string {
	var out []string
	out = appendKeys(out, behaviour.FamilyEntity, r.entity)
	out = appendKeys(out, behaviour.FamilyEntityComponent, r.entityComponent)
	out = appendKeys(out, behaviour.FamilyRelation, r.relation)
	out = appendKeys(out, behaviour.FamilyRelationComponent, r.relationComponent)
	sort.Strings(out)
	return out
}

func appendKeys[K Key](out []string, family behaviour.Family, m map[K]behaviour.Factory) []string {
	for k := range m {
		out = append(out, string(family)+":"+k.String())
	}
	return out
}

func keysOf[K Key](m map[K]behaviour.Factory) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name          string
	Version       string
	Components    []string
	EntityTypes   []string
	RelationTypes []string
	Behaviours    []string
	// Attached counts behaviours attached to existing instances at install.
	Attached int

	entity            []behaviour.EntityBehaviourTypeID
	entityComponent   []behaviour.ComponentBehaviourTypeID
	relation          []behaviour.RelationBehaviourTypeID
	relationComponent []behaviour.ComponentBehaviourTypeID
}

func newPluginMetadata(plugin pluginapi.Plugin, registry *PluginRegistry) PluginMetadata {
	meta := PluginMetadata{
		Name:              plugin.Name(),
		Version:           plugin.Version(),
		Behaviours:        registry.Behaviours(),
		entity:            keysOf(registry.entity),
		entityComponent:   keysOf(registry.entityComponent),
		relation:          keysOf(registry.relation),
		relationComponent: keysOf(registry.relationComponent),
	}
	for _, c := range registry.components {
		meta.Components = append(meta.Components, c.Ty.String())
	}
	for _, t := range registry.entityTypes {
		meta.EntityTypes = append(meta.EntityTypes, t.Ty.String())
	}
	for _, t := range registry.relationTypes {
		meta.RelationTypes = append(meta.RelationTypes, t.Ty.String())
	}
	return meta
}
