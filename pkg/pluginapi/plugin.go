// Package pluginapi is the contract between the runtime and plugins. Plugins
// import only pkg/ packages; the runtime collects a plugin's contribution
// through Registry and applies it as one unit.
package pluginapi

import (
	"reactivegraph/pkg/behaviour"
	"reactivegraph/pkg/graph"
)

// Registry receives a plugin's types and behaviour factories.
type Registry interface {
	RegisterComponent(component graph.Component) error
	RegisterEntityType(entityType graph.EntityType) error
	RegisterRelationType(relationType graph.RelationType) error

	RegisterEntityBehaviour(ty behaviour.EntityBehaviourTypeID, factory behaviour.Factory) error
	RegisterEntityComponentBehaviour(ty behaviour.ComponentBehaviourTypeID, factory behaviour.Factory) error
	RegisterRelationBehaviour(ty behaviour.RelationBehaviourTypeID, factory behaviour.Factory) error
	RegisterRelationComponentBehaviour(ty behaviour.ComponentBehaviourTypeID, factory behaviour.Factory) error
}

// Plugin contributes types and behaviours.
type Plugin interface {
	Name() string
	Version() string
	Register(Registry) error
}

// Version is the plugin API version.
const Version = "v1"
