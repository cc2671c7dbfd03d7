package behaviour

import (
	"errors"
	"fmt"

	"reactivegraph/pkg/graph"
)

// Transition failures.
var (
	ErrBehaviourInvalid     = errors.New("behaviour invalid")
	ErrInitializationFailed = errors.New("behaviour initialization failed")
	ErrConnectFailed        = errors.New("behaviour connect failed")
	ErrDisconnectFailed     = errors.New("behaviour disconnect failed")
	ErrReconnectFailed      = errors.New("behaviour reconnect failed")
	ErrShutdownFailed       = errors.New("behaviour shutdown failed")
	ErrInvalidTransition    = errors.New("invalid behaviour transition")
)

// Validation failures.
var (
	ErrPropertyMissing         = errors.New("property missing")
	ErrOutboundPropertyMissing = errors.New("outbound property missing")
	ErrInboundPropertyMissing  = errors.New("inbound property missing")
	ErrInvalidDataType         = errors.New("invalid data type")
)

// Creation failures.
var (
	ErrBehaviourAlreadyApplied = errors.New("behaviour already applied")
	ErrBehaviourTransition     = errors.New("behaviour transition failed")
	ErrInstanceKindMismatch    = errors.New("instance kind mismatch")
	ErrConstructionFailed      = errors.New("behaviour construction failed")
)

// TransitionError reports a failed lifecycle transition. Kind is one of the
// transition sentinels; Err is the optional inner cause.
type TransitionError struct {
	Kind error
	Ty   string
	Err  error
}

func (e *TransitionError) Error() string {
	msg := e.Kind.Error()
	if e.Ty != "" {
		msg = fmt.Sprintf("%s: %s", e.Ty, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *TransitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// PropertyInvalidError reports a missing or mistyped property.
type PropertyInvalidError struct {
	Kind     error
	Property string
	Expected graph.DataType
	Actual   graph.DataType
}

func (e *PropertyInvalidError) Error() string {
	if errors.Is(e.Kind, ErrInvalidDataType) {
		return fmt.Sprintf("%s: %s expected %s, got %s", e.Kind, e.Property, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Property)
}

func (e *PropertyInvalidError) Unwrap() error { return e.Kind }

// CreationError reports a failure to create and start a behaviour.
type CreationError struct {
	Kind error
	Ty   string
	Err  error
}

func (e *CreationError) Error() string {
	msg := fmt.Sprintf("create behaviour %s: %s", e.Ty, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CreationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func transitionError(kind error, ty TypeKey, err error) error {
	te := &TransitionError{Kind: kind, Err: err}
	if ty != nil {
		te.Ty = ty.String()
	}
	return te
}

// NewCreationError wraps err as a creation failure of the given kind.
func NewCreationError(kind error, ty TypeKey, err error) error {
	ce := &CreationError{Kind: kind, Err: err}
	if ty != nil {
		ce.Ty = ty.String()
	}
	return ce
}
