package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesKeepOrder(t *testing.T) {
	var vs Values
	err := json.Unmarshal([]byte(`{"zeta": 1, "alpha": "a", "mid": {"x": true}}`), &vs)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, vs.Labels())

	out, err := json.Marshal(vs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta": 1, "alpha": "a", "mid": {"x": true}}`, string(out))
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":{"x":true}}`, string(out))
}

func TestValuesSetLastWriteWins(t *testing.T) {
	var vs Values
	vs.Set("Name", "first")
	vs.Set("Age", "12")
	vs.Set("Name", "second")

	assert.Equal(t, []string{"Name", "Age"}, vs.Labels())
	v, ok := vs.Get("Name")
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestValuesRejectsNonObject(t *testing.T) {
	var vs Values
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &vs))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &vs))
	assert.Nil(t, vs)
}

func TestValuesScan(t *testing.T) {
	var vs Values
	require.NoError(t, vs.Scan(`{"b": 2, "a": 1}`))
	assert.Equal(t, Values{{"b", float64(2)}, {"a", float64(1)}}, vs)

	dv, err := vs.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":1}`, dv)
}

func TestFieldTypeDecoding(t *testing.T) {
	var f FieldCreate
	require.NoError(t, json.Unmarshal([]byte(`{"label": "Loc", "field_type": "map_coordinates"}`), &f))
	assert.Equal(t, MapCoordinates, f.FieldType)
	assert.True(t, f.FieldType.Geo())

	err := json.Unmarshal([]byte(`{"label": "X", "field_type": "dropdown"}`), &f)
	assert.Error(t, err)
}

func TestFieldTypeNames(t *testing.T) {
	for _, ft := range FieldTypes {
		assert.NotEqual(t, string(ft), ft.Name(), "%s has no display name", ft)
	}
	assert.Equal(t, "Point on map", MapCoordinates.Name())
	assert.Equal(t, "dropdown", FieldType("dropdown").Name())

	assert.False(t, Text.Geo())
	assert.True(t, CoordinatesLat.Geo())
}

func TestQuestionnaireProtected(t *testing.T) {
	empty, secret := "", "s3cret"
	assert.False(t, Questionnaire{}.Protected())
	assert.False(t, Questionnaire{Password: &empty}.Protected())
	assert.True(t, Questionnaire{Password: &secret}.Protected())
}
