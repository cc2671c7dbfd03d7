package behaviour

import (
	"errors"
	"fmt"
	"sync"

	"reactivegraph/pkg/reactive"
)

// Behaviour is the lifecycle state machine of one behaviour bound to one
// instance. Transition methods serialize on the behaviour; a Transitions
// implementation must not call back into its own state machine.
type Behaviour struct {
	instance    reactive.Instance
	ty          TypeKey
	observers   *ObserverContainer
	transitions Transitions

	mu     sync.Mutex
	state  State
	detach sync.Once
}

// New wraps transitions in a state machine in state Created. Factories call
// it; behaviour authors normally do not.
func New(instance reactive.Instance, ty TypeKey, observers *ObserverContainer, transitions Transitions) *Behaviour {
	if observers == nil {
		observers = NewObserverContainer(instance)
	}
	if transitions == nil {
		transitions = NoopTransitions{}
	}
	return &Behaviour{
		instance:    instance,
		ty:          ty,
		observers:   observers,
		transitions: transitions,
		state:       StateCreated,
	}
}

// Instance returns the owning instance.
func (b *Behaviour) Instance() reactive.Instance { return b.instance }

// Ty returns the full behaviour type key.
func (b *Behaviour) Ty() TypeKey { return b.ty }

// BehaviourTy returns the bare behaviour type, which is also the marker.
func (b *Behaviour) BehaviourTy() BehaviourTypeID { return b.ty.Behaviour() }

// Observers returns the observer container.
func (b *Behaviour) Observers() *ObserverContainer { return b.observers }

// Transitions returns the behaviour-specific implementation.
func (b *Behaviour) Transitions() Transitions { return b.transitions }

// State returns the current state.
func (b *Behaviour) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Validate moves Created to Valid.
func (b *Behaviour) Validate() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validateLocked()
}

func (b *Behaviour) validateLocked() error {
	switch b.state {
	case StateCreated:
	case StateShutDown:
		return b.invalid("validate")
	default:
		return nil
	}
	if v, ok := b.transitions.(Validator); ok {
		if err := v.Validate(); err != nil {
			return transitionError(ErrBehaviourInvalid, b.ty, err)
		}
	}
	b.state = StateValid
	return nil
}

// Init moves Valid to Ready, validating first when still Created.
func (b *Behaviour) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initLocked()
}

func (b *Behaviour) initLocked() error {
	switch b.state {
	case StateCreated:
		if err := b.validateLocked(); err != nil {
			return err
		}
	case StateValid:
	case StateShutDown:
		return b.invalid("init")
	default:
		return nil
	}
	if err := b.transitions.Init(); err != nil {
		return transitionError(ErrInitializationFailed, b.ty, err)
	}
	b.state = StateReady
	return nil
}

// Connect subscribes the behaviour. From Created or Valid it runs the
// remaining validate and init steps first. A failed connect leaves no
// observer behind.
func (b *Behaviour) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectLocked()
}

func (b *Behaviour) connectLocked() error {
	switch b.state {
	case StateCreated, StateValid:
		if err := b.initLocked(); err != nil {
			return transitionError(ErrConnectFailed, b.ty, err)
		}
	case StateReady, StateDisconnected:
	case StateConnected:
		return nil
	default:
		return b.invalid("connect")
	}
	if err := b.transitions.Connect(); err != nil {
		b.observers.RemoveAll()
		return transitionError(ErrConnectFailed, b.ty, err)
	}
	b.state = StateConnected
	return nil
}

// Disconnect unsubscribes the behaviour. It is a no-op unless Connected.
func (b *Behaviour) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disconnectLocked()
}

func (b *Behaviour) disconnectLocked() error {
	if b.state != StateConnected {
		return nil
	}
	if err := b.transitions.Disconnect(); err != nil {
		return transitionError(ErrDisconnectFailed, b.ty, err)
	}
	b.observers.RemoveAll()
	b.state = StateDisconnected
	return nil
}

// Reconnect disconnects then connects, reporting the first failure.
func (b *Behaviour) Reconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateShutDown {
		return transitionError(ErrReconnectFailed, b.ty, b.invalid("reconnect"))
	}
	if err := b.disconnectLocked(); err != nil {
		return transitionError(ErrReconnectFailed, b.ty, err)
	}
	if err := b.connectLocked(); err != nil {
		return transitionError(ErrReconnectFailed, b.ty, err)
	}
	return nil
}

// Shutdown disconnects if needed and releases resources. The state becomes
// ShutDown even when a step fails; repeated calls are no-ops.
func (b *Behaviour) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdownLocked()
}

func (b *Behaviour) shutdownLocked() error {
	if b.state == StateShutDown {
		return nil
	}
	var errs []error
	if err := b.disconnectLocked(); err != nil {
		errs = append(errs, err)
		b.observers.RemoveAll()
	}
	if err := b.transitions.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	b.state = StateShutDown
	if len(errs) > 0 {
		return transitionError(ErrShutdownFailed, b.ty, errors.Join(errs...))
	}
	return nil
}

// Transition drives the behaviour to target through the allowed edges.
func (b *Behaviour) Transition(target State) error {
	switch target {
	case StateValid:
		return b.Validate()
	case StateReady:
		return b.Init()
	case StateConnected:
		return b.Connect()
	case StateDisconnected:
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.state != StateConnected && b.state != StateDisconnected {
			return b.invalid("disconnect")
		}
		return b.disconnectLocked()
	case StateShutDown:
		return b.Shutdown()
	default:
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.State(), target)
	}
}

// Detach tears the behaviour down: disconnect, remove the marker from the
// instance, shut down. Errors are discarded and every observer the
// behaviour registered is removed. Only the first call has any effect.
func (b *Behaviour) Detach() {
	b.detach.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = b.disconnectLocked()
		b.observers.RemoveAll()
		if b.instance != nil && b.ty != nil {
			b.instance.RemoveBehaviour(b.ty.Behaviour().NamespacedType)
		}
		_ = b.shutdownLocked()
	})
}

func (b *Behaviour) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, b.state)
}
