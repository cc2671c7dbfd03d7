package behaviour

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivegraph/pkg/graph"
	"reactivegraph/pkg/reactive"
)

var (
	counterTy = graph.NewEntityTypeID("test", "counter")
	incTy     = NewEntityBehaviourTypeID(counterTy, NewBehaviourTypeID("test", "inc"))
)

// incTransitions copies in+1 to out whenever in changes.
type incTransitions struct {
	NoopTransitions
	instance   reactive.Instance
	observers  *ObserverContainer
	connectErr error
	disconnErr error
	shutdowns  int
}

func (t *incTransitions) Validate() error {
	return PropertyValidator{Instance: t.instance, Properties: []string{"in", "out"}}.Validate()
}

func (t *incTransitions) Init() error {
	v, _ := t.instance.Get("in")
	n, _ := v.(float64)
	return t.instance.Set("out", n+1)
}

func (t *incTransitions) Connect() error {
	if _, err := t.observers.Observe("in", func(v any) {
		n, _ := v.(float64)
		_ = t.instance.Set("out", n+1)
	}); err != nil {
		return err
	}
	return t.connectErr
}

func (t *incTransitions) Disconnect() error { return t.disconnErr }

func (t *incTransitions) Shutdown() error {
	t.shutdowns++
	return nil
}

func newCounter(t *testing.T) *reactive.Entity {
	t.Helper()
	e, err := reactive.NewEntity(counterTy,
		reactive.WithProperty("in", graph.Mutable, float64(0)),
		reactive.WithProperty("out", graph.Mutable, float64(0)))
	require.NoError(t, err)
	return e
}

func newInc(t *testing.T, e reactive.Instance) (*Behaviour, *incTransitions) {
	t.Helper()
	var impl *incTransitions
	f := NewFactory(incTy, func(instance reactive.Instance, observers *ObserverContainer) (Transitions, error) {
		impl = &incTransitions{instance: instance, observers: observers}
		return impl, nil
	})
	b, err := f.Create(e)
	require.NoError(t, err)
	return b, impl
}

func observerCount(t *testing.T, i reactive.Instance, name string) int {
	t.Helper()
	p, ok := i.Property(name)
	require.True(t, ok)
	return p.ObserverCount()
}

func TestBehaviourLifecycle(t *testing.T) {
	e := newCounter(t)
	b, impl := newInc(t, e)
	assert.Equal(t, StateCreated, b.State())
	assert.Empty(t, e.Behaviours(), "factory must not mark the instance")

	require.NoError(t, b.Validate())
	assert.Equal(t, StateValid, b.State())
	require.NoError(t, b.Init())
	assert.Equal(t, StateReady, b.State())
	out, _ := e.Get("out")
	assert.Equal(t, float64(1), out)

	require.NoError(t, b.Connect())
	assert.Equal(t, StateConnected, b.State())
	require.NoError(t, e.Set("in", float64(41)))
	out, _ = e.Get("out")
	assert.Equal(t, float64(42), out)

	require.NoError(t, b.Disconnect())
	assert.Equal(t, StateDisconnected, b.State())
	require.NoError(t, e.Set("in", float64(1)))
	out, _ = e.Get("out")
	assert.Equal(t, float64(42), out)

	require.NoError(t, b.Shutdown())
	require.NoError(t, b.Shutdown())
	assert.Equal(t, StateShutDown, b.State())
	assert.Equal(t, 1, impl.shutdowns)
	require.ErrorIs(t, b.Connect(), ErrInvalidTransition)
}

func TestBehaviourDisconnectIsIdempotent(t *testing.T) {
	e := newCounter(t)
	foreign := reactive.NewHandleID()
	require.NoError(t, e.ObserveWithHandle("in", func(any) {}, foreign))

	b, _ := newInc(t, e)
	require.NoError(t, b.Connect())
	assert.Equal(t, 2, observerCount(t, e, "in"))

	require.NoError(t, b.Disconnect())
	once := observerCount(t, e, "in")
	require.NoError(t, b.Disconnect())
	assert.Equal(t, once, observerCount(t, e, "in"))
	assert.Equal(t, 1, once)
	assert.Equal(t, StateDisconnected, b.State())

	p, _ := e.Property("in")
	assert.True(t, p.HasObserver(foreign))
}

func TestBehaviourReconnectMatchesManualSequence(t *testing.T) {
	manualEntity := newCounter(t)
	manual, _ := newInc(t, manualEntity)
	require.NoError(t, manual.Connect())
	require.NoError(t, manual.Disconnect())
	require.NoError(t, manual.Connect())

	e := newCounter(t)
	b, _ := newInc(t, e)
	require.NoError(t, b.Connect())
	require.NoError(t, b.Reconnect())

	assert.Equal(t, observerCount(t, manualEntity, "in"), observerCount(t, e, "in"))
	assert.Equal(t, manual.Observers().Count(), b.Observers().Count())
	assert.Equal(t, StateConnected, b.State())
}

func TestBehaviourReconnectSurfacesFirstFailure(t *testing.T) {
	cases := []struct {
		name     string
		connect  error
		disconn  error
		wantKind error
	}{
		{name: "disconnect fails", disconn: errors.New("stuck"), wantKind: ErrDisconnectFailed},
		{name: "connect fails", connect: errors.New("refused"), wantKind: ErrConnectFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newCounter(t)
			b, impl := newInc(t, e)
			require.NoError(t, b.Connect())
			impl.connectErr = tc.connect
			impl.disconnErr = tc.disconn

			err := b.Reconnect()
			require.ErrorIs(t, err, ErrReconnectFailed)
			require.ErrorIs(t, err, tc.wantKind)
			var te *TransitionError
			require.True(t, errors.As(err, &te))
		})
	}
}

func TestBehaviourFailedConnectLeavesNoObserver(t *testing.T) {
	e := newCounter(t)
	b, impl := newInc(t, e)
	impl.connectErr = errors.New("refused")

	err := b.Connect()
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.Zero(t, observerCount(t, e, "in"))
	assert.Zero(t, b.Observers().Count())
	assert.Equal(t, StateReady, b.State())
}

func TestBehaviourDetachTearsDown(t *testing.T) {
	e := newCounter(t)
	b, impl := newInc(t, e)
	require.NoError(t, b.Connect())
	e.AddBehaviour(b.BehaviourTy().NamespacedType)
	impl.disconnErr = errors.New("disconnect ignored")

	b.Detach()
	assert.False(t, e.BehavesAs(b.BehaviourTy().NamespacedType))
	assert.Zero(t, observerCount(t, e, "in"))
	assert.Equal(t, StateShutDown, b.State())
	assert.Equal(t, 1, impl.shutdowns)

	b.Detach()
	assert.Equal(t, 1, impl.shutdowns)
}

func TestBehaviourTransitionTargets(t *testing.T) {
	e := newCounter(t)
	b, _ := newInc(t, e)
	require.ErrorIs(t, b.Transition(StateDisconnected), ErrInvalidTransition)
	require.NoError(t, b.Transition(StateConnected))
	require.NoError(t, b.Transition(StateDisconnected))
	require.NoError(t, b.Transition(StateConnected))
	require.NoError(t, b.Transition(StateShutDown))
	require.ErrorIs(t, b.Transition(StateCreated), ErrInvalidTransition)
}

func TestBehaviourValidationFailureBlocksConnect(t *testing.T) {
	e, err := reactive.NewEntity(counterTy, reactive.WithProperty("in", graph.Mutable, float64(0)))
	require.NoError(t, err)
	b, _ := newInc(t, e)

	err = b.Connect()
	require.ErrorIs(t, err, ErrConnectFailed)
	require.ErrorIs(t, err, ErrBehaviourInvalid)
	require.ErrorIs(t, err, ErrPropertyMissing)
	var pie *PropertyInvalidError
	require.True(t, errors.As(err, &pie))
	assert.Equal(t, "out", pie.Property)
	assert.Equal(t, StateCreated, b.State())
	assert.Zero(t, observerCount(t, e, "in"))
}
