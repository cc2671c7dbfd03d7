package reactive

import "errors"

// Property and instance errors.
var (
	ErrPropertyAlreadyExists    = errors.New("reactive: property already exists")
	ErrPropertyInUseByComponent = errors.New("reactive: property in use by component")
	ErrPropertyNotFound         = errors.New("reactive: property not found")
	ErrImmutableProperty        = errors.New("reactive: property is immutable")
	ErrPropagationLimitExceeded = errors.New("reactive: propagation limit exceeded")
	ErrInvalidValue             = errors.New("reactive: invalid value")
	ErrInstanceNotFound         = errors.New("reactive: instance not found")
	ErrInstanceExists           = errors.New("reactive: instance already exists")
)
