package form

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/mbolis/geo-survey/geo"
	"github.com/mbolis/geo-survey/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schema(password *string, fields ...model.FieldDef) model.Questionnaire {
	return model.Questionnaire{ID: 1, Title: "Survey", Password: password, Elements: fields}
}

func field(id int, label string, t model.FieldType) model.FieldDef {
	return model.FieldDef{ID: id, Label: label, FieldType: t}
}

func TestBuildPayloadMapScenario(t *testing.T) {
	s := schema(nil,
		field(1, "Nom", model.Text),
		field(2, "Loc", model.MapCoordinates),
	)
	d := Draft{Values: map[int]any{
		1: "Alice",
		2: geo.Point{Lat: 48.8, Lng: 2.3},
	}}

	payload, err := BuildPayload(s, d)
	require.NoError(t, err)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data_values": {"Nom": "Alice"}, "latitude": 48.8, "longitude": 2.3}`, string(out))
}

func TestBuildPayloadMapFieldNeverInDataValues(t *testing.T) {
	points := []any{
		geo.Point{Lat: 1, Lng: 2},
		&geo.Point{Lat: 1, Lng: 2},
		map[string]any{"lat": 1.0, "lng": 2.0},
	}
	for _, p := range points {
		payload, err := BuildPayload(schema(nil, field(9, "Where", model.MapCoordinates)), Draft{Values: map[int]any{9: p}})
		require.NoError(t, err)
		assert.Empty(t, payload.DataValues)
		require.NotNil(t, payload.Latitude)
		require.NotNil(t, payload.Longitude)
		assert.Equal(t, 1.0, *payload.Latitude)
		assert.Equal(t, 2.0, *payload.Longitude)
	}
}

func TestBuildPayloadDropsMalformedPoint(t *testing.T) {
	s := schema(nil, field(9, "Where", model.MapCoordinates))
	payload, err := BuildPayload(s, Draft{Values: map[int]any{9: map[string]any{"lat": "48"}}})
	require.NoError(t, err)
	assert.Empty(t, payload.DataValues)
	assert.Nil(t, payload.Latitude)
}

func TestBuildPayloadSkipsEmptyValues(t *testing.T) {
	s := schema(nil,
		field(1, "Nom", model.Text),
		field(2, "Lat", model.CoordinatesLat),
		field(3, "Lon", model.CoordinatesLon),
		field(4, "Loc", model.MapCoordinates),
		field(5, "Age", model.Number),
	)
	d := Draft{Values: map[int]any{
		1: "",
		2: "",
		3: nil,
		4: (*geo.Point)(nil),
	}}

	payload, err := BuildPayload(s, d)
	require.NoError(t, err)
	assert.Empty(t, payload.DataValues)
	assert.Nil(t, payload.Latitude)
	assert.Nil(t, payload.Longitude)
}

func TestBuildPayloadScalarCoordinates(t *testing.T) {
	s := schema(nil,
		field(1, "Lat", model.CoordinatesLat),
		field(2, "Lon", model.CoordinatesLon),
		field(3, "Species", model.Text),
	)

	tests := []struct {
		name    string
		values  map[int]any
		wantLat *float64
		wantLon *float64
	}{
		{"strings", map[int]any{1: "45.5", 2: " -0.25 "}, ptr(45.5), ptr(-0.25)},
		{"numbers", map[int]any{1: 45.5, 2: 3}, ptr(45.5), ptr(3.0)},
		{"unparseable latitude dropped", map[int]any{1: "north", 2: "1.5"}, nil, ptr(1.5)},
		{"not finite dropped", map[int]any{1: "NaN", 2: "Inf"}, nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := BuildPayload(s, Draft{Values: tc.values})
			require.NoError(t, err)
			assert.Equal(t, tc.wantLat, payload.Latitude)
			assert.Equal(t, tc.wantLon, payload.Longitude)
			assert.Empty(t, payload.DataValues)
		})
	}
}

func TestBuildPayloadDuplicateLabelsLastWins(t *testing.T) {
	s := schema(nil,
		field(1, "Name", model.Text),
		field(2, "Email", model.Email),
		field(3, "Name", model.Text),
	)
	d := Draft{Values: map[int]any{1: "first", 2: "a@b.c", 3: "second"}}

	payload, err := BuildPayload(s, d)
	require.NoError(t, err)
	assert.Equal(t, model.Values{{"Name", "second"}, {"Email", "a@b.c"}}, payload.DataValues)
}

func TestBuildPayloadKeysByLabelInSchemaOrder(t *testing.T) {
	s := schema(nil,
		field(20, "When", model.Date),
		field(10, "Count", model.Number),
	)
	d := Draft{Values: map[int]any{10: "4", 20: "2024-05-01", 99: "stray"}}

	payload, err := BuildPayload(s, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"When", "Count"}, payload.DataValues.Labels())
}

func TestBuildPayloadRequiresPassword(t *testing.T) {
	secret, empty := "s3cret", ""
	s := schema(&secret, field(1, "Nom", model.Text))

	_, err := BuildPayload(s, Draft{Values: map[int]any{1: "Alice"}})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "password", valErr.Field)

	_, err = BuildPayload(s, Draft{Values: map[int]any{1: "Alice"}, Password: "s3cret"})
	assert.NoError(t, err)

	_, err = BuildPayload(schema(&empty, field(1, "Nom", model.Text)), Draft{})
	assert.NoError(t, err)
}

func TestBuildPayloadUnknownFieldType(t *testing.T) {
	s := schema(nil, field(1, "Choice", model.FieldType("dropdown")))
	_, err := BuildPayload(s, Draft{Values: map[int]any{1: "a"}})
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func ptr(f float64) *float64 {
	return &f
}
