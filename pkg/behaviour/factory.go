package behaviour

import (
	"fmt"

	"reactivegraph/pkg/reactive"
)

// Factory builds behaviours of one type. Factories are stateless and never
// touch the instance's behaviour markers.
type Factory interface {
	Ty() TypeKey
	BehaviourTy() BehaviourTypeID
	Create(instance reactive.Instance) (*Behaviour, error)
}

// Constructor builds the behaviour-specific transitions for an instance.
// Observers registered through the container are removed on disconnect. It
// runs under the same manager lock as Transitions.Init.
type Constructor func(instance reactive.Instance, observers *ObserverContainer) (Transitions, error)

// ConstructorFactory is a Factory backed by a Constructor.
type ConstructorFactory struct {
	ty   TypeKey
	ctor Constructor
}

var _ Factory = (*ConstructorFactory)(nil)

// NewFactory constructs a factory for ty.
func NewFactory(ty TypeKey, ctor Constructor) *ConstructorFactory {
	return &ConstructorFactory{ty: ty, ctor: ctor}
}

// Ty implements Factory.
func (f *ConstructorFactory) Ty() TypeKey { return f.ty }

// BehaviourTy implements Factory.
func (f *ConstructorFactory) BehaviourTy() BehaviourTypeID { return f.ty.Behaviour() }

// Create constructs a behaviour in state Created.
func (f *ConstructorFactory) Create(instance reactive.Instance) (*Behaviour, error) {
	if instance == nil {
		return nil, NewCreationError(ErrInstanceKindMismatch, f.ty, fmt.Errorf("nil instance"))
	}
	if err := checkKind(f.ty, instance); err != nil {
		return nil, err
	}
	observers := NewObserverContainer(instance)
	var transitions Transitions = NoopTransitions{}
	if f.ctor != nil {
		t, err := f.ctor(instance, observers)
		if err != nil {
			return nil, NewCreationError(ErrConstructionFailed, f.ty, err)
		}
		if t != nil {
			transitions = t
		}
	}
	return New(instance, f.ty, observers, transitions), nil
}

func checkKind(ty TypeKey, instance reactive.Instance) error {
	var want reactive.Kind
	switch ty.(type) {
	case EntityBehaviourTypeID:
		want = reactive.KindEntity
	case RelationBehaviourTypeID:
		want = reactive.KindRelation
	default:
		return nil
	}
	if instance.Kind() != want {
		return NewCreationError(ErrInstanceKindMismatch, ty, fmt.Errorf("want %s, got %s", want, instance.Kind()))
	}
	return nil
}

// AsEntity narrows an instance to an entity.
func AsEntity(instance reactive.Instance) (*reactive.Entity, error) {
	e, ok := instance.(*reactive.Entity)
	if !ok {
		return nil, fmt.Errorf("%w: want entity, got %T", ErrInstanceKindMismatch, instance)
	}
	return e, nil
}

// AsRelation narrows an instance to a relation.
func AsRelation(instance reactive.Instance) (*reactive.Relation, error) {
	r, ok := instance.(*reactive.Relation)
	if !ok {
		return nil, fmt.Errorf("%w: want relation, got %T", ErrInstanceKindMismatch, instance)
	}
	return r, nil
}
