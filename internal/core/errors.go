package core

import (
	"errors"
	"fmt"

	"reactivegraph/pkg/reactive"
)

// Registry and manager errors.
var (
	ErrBehaviourAlreadyRegistered = errors.New("behaviour type already registered")
	ErrBehaviourNotRegistered     = errors.New("behaviour type not registered")
	ErrBehaviourNotFound          = errors.New("behaviour not active on instance")
	ErrPluginAlreadyInstalled     = errors.New("plugin already installed")
	ErrPluginNotInstalled         = errors.New("plugin not installed")
	ErrSnapshotStoreDisabled      = errors.New("snapshot store not configured")
	ErrBlobStoreDisabled          = errors.New("blob store not configured")
	ErrArenaNotEmpty              = errors.New("restore requires an empty graph")
)

// ErrNotFound is returned when an instance lookup misses.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Unwrap lets callers match any lookup miss with reactive.ErrInstanceNotFound.
func (e ErrNotFound) Unwrap() error { return reactive.ErrInstanceNotFound }
