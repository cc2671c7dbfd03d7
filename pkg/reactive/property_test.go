package reactive

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactivegraph/pkg/graph"
)

func TestPropertyPropagatesToDependent(t *testing.T) {
	props := NewProperties("owner")
	p1, err := props.Add("p1", graph.Mutable, float64(0))
	require.NoError(t, err)
	p2, err := props.Add("p2", graph.Mutable, float64(0))
	require.NoError(t, err)

	p1.ObserveWithHandle(func(v any) {
		n, _ := asFloat(v)
		require.NoError(t, p2.Set(n+1))
	}, NewHandleID())

	require.NoError(t, p1.Set(5))
	assert.Equal(t, float64(6), p2.Get())
}

func TestPropertyObserversRunInRegistrationOrder(t *testing.T) {
	p := NewProperty("o", "x", graph.Mutable, nil)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		p.ObserveWithHandle(func(any) { order = append(order, i) }, NewHandleID())
	}
	require.NoError(t, p.Set(true))
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestPropertyImmutableRejectsSet(t *testing.T) {
	p := NewProperty("o", "x", graph.Immutable, "initial")
	calls := 0
	p.ObserveWithHandle(func(any) { calls++ }, NewHandleID())

	err := p.Set("changed")
	require.ErrorIs(t, err, ErrImmutableProperty)
	require.ErrorIs(t, p.SetNoPropagate("changed"), ErrImmutableProperty)
	assert.Equal(t, "initial", p.Get())
	assert.Zero(t, calls)

	require.NoError(t, p.TickChecked())
	assert.Zero(t, calls)
	require.NoError(t, p.Tick())
	assert.Equal(t, 1, calls)
}

func TestPropertySendAndSetNoPropagate(t *testing.T) {
	p := NewProperty("o", "x", graph.Mutable, float64(1))
	var seen []any
	p.ObserveWithHandle(func(v any) { seen = append(seen, v) }, NewHandleID())

	require.NoError(t, p.SetNoPropagate(float64(2)))
	assert.Empty(t, seen)
	assert.Equal(t, float64(2), p.Get())

	require.NoError(t, p.Send(float64(9)))
	assert.Equal(t, []any{float64(9)}, seen)
	assert.Equal(t, float64(2), p.Get())
}

func TestPropertyRemoveObserverTargetsHandle(t *testing.T) {
	p := NewProperty("o", "x", graph.Mutable, nil)
	keep, drop := NewHandleID(), NewHandleID()
	var kept, dropped int
	p.ObserveWithHandle(func(any) { kept++ }, keep)
	p.ObserveWithHandle(func(any) { dropped++ }, drop)

	assert.True(t, p.RemoveObserver(drop))
	assert.False(t, p.RemoveObserver(drop))
	require.NoError(t, p.Set(1))
	assert.Equal(t, 1, kept)
	assert.Zero(t, dropped)
	assert.True(t, p.HasObserver(keep))

	p.RemoveObservers()
	assert.Zero(t, p.ObserverCount())
}

func TestPropertyObserveSameHandleReplaces(t *testing.T) {
	p := NewProperty("o", "x", graph.Mutable, nil)
	h := NewHandleID()
	var first, second int
	p.ObserveWithHandle(func(any) { first++ }, h)
	p.ObserveWithHandle(func(any) { second++ }, h)
	require.NoError(t, p.Set(1))
	assert.Equal(t, 1, p.ObserverCount())
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestPropertyGetReturnsCopy(t *testing.T) {
	p := NewProperty("o", "x", graph.Mutable, map[string]any{"nested": []any{1.0}})
	v := p.Get().(map[string]any)
	v["nested"].([]any)[0] = 99.0
	v["extra"] = true

	again, ok := p.AsObject()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"nested": []any{1.0}}, again)
}

func TestPropertyReentrantSetWithoutLimit(t *testing.T) {
	p := NewProperty("o", "counter", graph.Mutable, float64(0))
	p.ObserveWithHandle(func(v any) {
		n, _ := asFloat(v)
		if n < 50 {
			require.NoError(t, p.Set(n+1))
		}
	}, NewHandleID())
	require.NoError(t, p.Set(float64(1)))
	assert.Equal(t, float64(50), p.Get())
}

func TestPropertyPropagationLimit(t *testing.T) {
	props := NewProperties("o")
	props.SetPropagationLimit(3)
	p, err := props.Add("loop", graph.Mutable, float64(0))
	require.NoError(t, err)

	var nestedErr error
	p.ObserveWithHandle(func(v any) {
		n, _ := asFloat(v)
		if err := p.Set(n + 1); err != nil && nestedErr == nil {
			nestedErr = err
		}
	}, NewHandleID())

	require.NoError(t, p.Set(float64(1)))
	require.ErrorIs(t, nestedErr, ErrPropagationLimitExceeded)
	assert.Equal(t, float64(3), p.Get())
}

func TestPropertyPropagationLimitCountsPerCascade(t *testing.T) {
	const writers = 4
	props := NewProperties("o")
	props.SetPropagationLimit(2)
	p, err := props.Add("x", graph.Mutable, float64(0))
	require.NoError(t, err)

	var inside atomic.Int32
	all := make(chan struct{})
	p.ObserveWithHandle(func(any) {
		if inside.Add(1) == writers {
			close(all)
		}
		select {
		case <-all:
		case <-time.After(2 * time.Second):
		}
	}, NewHandleID())

	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.Set(float64(i))
		}()
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}
	assert.Equal(t, int32(writers), inside.Load(), "every write reached its observer")
	assert.Empty(t, p.depth, "depth entries are released after each cascade")

	// a nested cascade on one goroutine is still bounded
	var nestedErr error
	p.RemoveObservers()
	p.ObserveWithHandle(func(v any) {
		n, _ := asFloat(v)
		if err := p.Set(n + 1); err != nil && nestedErr == nil {
			nestedErr = err
		}
	}, NewHandleID())
	require.NoError(t, p.Set(float64(10)))
	require.ErrorIs(t, nestedErr, ErrPropagationLimitExceeded)
	assert.Equal(t, float64(11), p.Get())
}

func TestGoroutineID(t *testing.T) {
	main := goroutineID()
	require.NotZero(t, main)
	assert.Equal(t, main, goroutineID())
	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	id := <-other
	assert.NotZero(t, id)
	assert.NotEqual(t, main, id)
}

func TestPropertyTypedAccessors(t *testing.T) {
	cases := []struct {
		name  string
		value any
		check func(t *testing.T, p *Property)
	}{
		{"bool", true, func(t *testing.T, p *Property) {
			v, ok := p.AsBool()
			assert.True(t, ok)
			assert.True(t, v)
		}},
		{"int", float64(42), func(t *testing.T, p *Property) {
			v, ok := p.AsInt64()
			assert.True(t, ok)
			assert.Equal(t, int64(42), v)
		}},
		{"fraction", 1.5, func(t *testing.T, p *Property) {
			_, ok := p.AsInt64()
			assert.False(t, ok)
			f, ok := p.AsFloat64()
			assert.True(t, ok)
			assert.Equal(t, 1.5, f)
		}},
		{"string", "hi", func(t *testing.T, p *Property) {
			v, ok := p.AsString()
			assert.True(t, ok)
			assert.Equal(t, "hi", v)
			_, ok = p.AsBool()
			assert.False(t, ok)
		}},
		{"array", []any{"a"}, func(t *testing.T, p *Property) {
			v, ok := p.AsArray()
			assert.True(t, ok)
			assert.Equal(t, []any{"a"}, v)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, NewProperty("o", tc.name, graph.Mutable, tc.value))
		})
	}
}

func TestPropertiesContainer(t *testing.T) {
	props := NewProperties("o")
	_, err := props.Add("b", graph.Mutable, 1)
	require.NoError(t, err)
	_, err = props.Add("a", graph.Mutable, 2)
	require.NoError(t, err)
	_, err = props.Add("a", graph.Mutable, 3)
	require.ErrorIs(t, err, ErrPropertyAlreadyExists)
	_, err = props.Add("", graph.Mutable, 3)
	require.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, props.Names())
	assert.Equal(t, map[string]any{"a": 2, "b": 1}, props.Values())
	require.NoError(t, props.Remove("a"))
	require.ErrorIs(t, props.Remove("a"), ErrPropertyNotFound)
	assert.Equal(t, 1, props.Len())
}

func TestValidateValue(t *testing.T) {
	require.NoError(t, ValidateValue(graph.DataTypeNumber, 1.0))
	require.ErrorIs(t, ValidateValue(graph.DataTypeNumber, "x"), ErrInvalidValue)
}
