package behaviour

// State is a lifecycle state of a behaviour.
type State string

// Lifecycle states. Created, Valid and Ready lead to Connected; Connected and
// Disconnected alternate; ShutDown is terminal.
const (
	StateCreated      State = "created"
	StateValid        State = "valid"
	StateReady        State = "ready"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateShutDown     State = "shut_down"
)

// Transitions is implemented by behaviour authors. Every method defaults to
// a no-op through NoopTransitions.
//
// A behaviour manager runs the Constructor, Init and Connect while holding
// the lock stripe of the instance, and Disconnect and Shutdown while holding
// it on detach. Stripes are shared between instances, so these methods must
// not synchronously attach or detach behaviours, create or delete instances,
// or install plugins. Hand such work to another goroutine.
type Transitions interface {
	// Init runs once before the first connect, typically to push an initial
	// computed value.
	Init() error
	// Connect subscribes to input properties.
	Connect() error
	// Disconnect releases anything Connect acquired besides observers, which
	// the state machine removes itself.
	Disconnect() error
	// Shutdown releases non-property resources.
	Shutdown() error
}

// Validator is optionally implemented by Transitions to check preconditions
// before Init.
type Validator interface {
	Validate() error
}

// NoopTransitions can be embedded to inherit no-op defaults.
type NoopTransitions struct{}

func (NoopTransitions) Init() error       { return nil }
func (NoopTransitions) Connect() error    { return nil }
func (NoopTransitions) Disconnect() error { return nil }
func (NoopTransitions) Shutdown() error   { return nil }

var _ Transitions = NoopTransitions{}
