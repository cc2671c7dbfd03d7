package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNamespacedType(t *testing.T) {
	cases := []struct {
		in      string
		want    NamespacedType
		wantErr bool
	}{
		{in: "arithmetic::add", want: NewNamespacedType("arithmetic", "add")},
		{in: "a::b::c", want: NewNamespacedType("a::b", "c")},
		{in: "noseparator", wantErr: true},
		{in: "::name", wantErr: true},
		{in: "ns::", wantErr: true},
		{in: " ::x", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseNamespacedType(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidNamespacedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String())
		})
	}
}

func TestTypeIDsAreComparable(t *testing.T) {
	a := NewEntityTypeID("ns", "lamp")
	b := NewEntityTypeID("ns", "lamp")
	assert.Equal(t, a, b)
	m := map[EntityTypeID]int{a: 1}
	assert.Equal(t, 1, m[b])
	assert.False(t, a.IsZero())
	assert.True(t, EntityTypeID{}.IsZero())
}

func TestRelationInstanceTypeID(t *testing.T) {
	id := NewRelationInstanceTypeID(NewRelationTypeID("conn", "default"), "x1")
	assert.Equal(t, "conn::default__x1", id.String())

	parsed, err := ParseRelationInstanceTypeID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	bare, err := ParseRelationInstanceTypeID("conn::default")
	require.NoError(t, err)
	assert.Equal(t, "", bare.Instance)
	assert.Equal(t, "conn::default", bare.String())

	_, err = ParseRelationInstanceTypeID("conn::__x")
	require.ErrorIs(t, err, ErrInvalidNamespacedType)
}

func TestDataTypeAccepts(t *testing.T) {
	cases := []struct {
		dt    DataType
		value any
		want  bool
	}{
		{DataTypeNumber, float64(1), true},
		{DataTypeNumber, 3, true},
		{DataTypeNumber, "3", false},
		{DataTypeBool, true, true},
		{DataTypeString, "x", true},
		{DataTypeArray, []any{1}, true},
		{DataTypeObject, map[string]any{}, true},
		{DataTypeNull, nil, true},
		{DataTypeAny, struct{}{}, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.dt.Accepts(tc.value), "%s accepts %v", tc.dt, tc.value)
	}
	for _, dt := range []DataType{DataTypeBool, DataTypeNumber, DataTypeString, DataTypeArray, DataTypeObject, DataTypeNull} {
		assert.True(t, dt.Accepts(dt.DefaultValue()), "default of %s", dt)
	}
}

func TestPropertyTypeValidate(t *testing.T) {
	require.NoError(t, NewPropertyType("x", DataTypeNumber).Validate())
	require.Error(t, PropertyType{DataType: DataTypeNumber}.Validate())
	require.Error(t, PropertyType{Name: "x", DataType: "decimal"}.Validate())
	require.Error(t, PropertyType{Name: "x", DataType: DataTypeBool, Mutability: "sometimes"}.Validate())
}

func TestTypeRegistryMergesComponentProperties(t *testing.T) {
	reg := NewTypeRegistry()
	gate := NewComponentTypeID("logical", "gate")
	require.NoError(t, reg.RegisterComponent(Component{
		Ty: gate,
		Properties: []PropertyType{
			InputProperty("lhs", DataTypeBool),
			OutputProperty("result", DataTypeBool),
		},
	}))
	lamp := NewEntityTypeID("demo", "lamp")
	require.NoError(t, reg.RegisterEntityType(EntityType{
		Ty:         lamp,
		Components: []ComponentTypeID{gate, NewComponentTypeID("missing", "c")},
		Properties: []PropertyType{
			NewPropertyType("name", DataTypeString),
			NewPropertyType("result", DataTypeNumber),
		},
	}))

	props, err := reg.EntityPropertyTypes(lamp)
	require.NoError(t, err)
	names := make([]string, 0, len(props))
	for _, p := range props {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"name", "result", "lhs"}, names)
	assert.Equal(t, DataTypeNumber, props[1].DataType)

	assert.Equal(t, []ComponentTypeID{gate}, DeclaringComponents(reg, []ComponentTypeID{gate}, "lhs"))
	assert.Empty(t, DeclaringComponents(reg, []ComponentTypeID{gate}, "name"))

	err = reg.RegisterEntityType(EntityType{Ty: lamp})
	assert.True(t, errors.Is(err, ErrTypeAlreadyRegistered))

	_, err = reg.EntityPropertyTypes(NewEntityTypeID("demo", "unknown"))
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestTypeRegistryRejectsInvalidDefinitions(t *testing.T) {
	reg := NewTypeRegistry()
	require.Error(t, reg.RegisterComponent(Component{}))
	require.Error(t, reg.RegisterEntityType(EntityType{
		Ty: NewEntityTypeID("a", "b"),
		Properties: []PropertyType{
			NewPropertyType("x", DataTypeBool),
			NewPropertyType("x", DataTypeBool),
		},
	}))
	rt := NewRelationTypeID("a", "link")
	require.NoError(t, reg.RegisterRelationType(RelationType{Ty: rt}))
	got, ok := reg.RelationType(rt)
	require.True(t, ok)
	assert.Equal(t, rt, got.Ty)
	assert.Len(t, reg.RelationTypes(), 1)
	assert.Len(t, reg.EntityTypes(), 0)
}

func TestTypeRegistryUnregister(t *testing.T) {
	reg := NewTypeRegistry()
	gate := NewComponentTypeID("logical", "gate")
	lamp := NewEntityTypeID("demo", "lamp")
	link := NewRelationTypeID("demo", "link")
	require.NoError(t, reg.RegisterComponent(Component{Ty: gate}))
	require.NoError(t, reg.RegisterEntityType(EntityType{Ty: lamp}))
	require.NoError(t, reg.RegisterRelationType(RelationType{Ty: link}))

	assert.True(t, reg.UnregisterComponent(gate))
	assert.True(t, reg.UnregisterEntityType(lamp))
	assert.True(t, reg.UnregisterRelationType(link))
	assert.False(t, reg.UnregisterEntityType(lamp))
	assert.Empty(t, reg.Components())
	assert.Empty(t, reg.EntityTypes())
	assert.Empty(t, reg.RelationTypes())

	require.NoError(t, reg.RegisterEntityType(EntityType{Ty: lamp}), "an unregistered type can be registered again")
}
