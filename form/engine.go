// Package form turns questionnaire schemas into inputs and volunteer input
// into submission payloads.
package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mbolis/geo-survey/geo"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/model"
)

// ValidationError reports a client-side precondition that failed before any
// request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Draft holds raw answers keyed by field id. Values are strings, numbers or
// geo.Point for map fields.
type Draft struct {
	Values   map[int]any
	Password string
}

func (d *Draft) Set(fieldID int, v any) {
	if d.Values == nil {
		d.Values = make(map[int]any)
	}
	d.Values[fieldID] = v
}

func (d *Draft) Reset() {
	d.Values = nil
	d.Password = ""
}

// BuildPayload reduces draft into a submission for schema, walking fields in
// schema order. Empty answers are left out. Geo fields fill the top-level
// latitude/longitude; every other answer is stored under the field's label,
// the last field winning when labels repeat.
func BuildPayload(schema model.Questionnaire, draft Draft) (model.DataObjectCreate, error) {
	payload := model.DataObjectCreate{DataValues: model.Values{}}

	if schema.Protected() && draft.Password == "" {
		return payload, &ValidationError{Field: "password", Message: "this questionnaire requires a password to submit"}
	}

	for _, field := range schema.Elements {
		value, ok := draft.Values[field.ID]
		if !ok || isEmpty(value) {
			continue
		}

		if !field.FieldType.Geo() {
			if !field.FieldType.Valid() {
				return payload, &ValidationError{Field: field.Label, Message: fmt.Sprintf("unsupported field type %q", field.FieldType)}
			}
			payload.DataValues.Set(field.Label, value)
			continue
		}

		if field.FieldType == model.MapCoordinates {
			p, ok := asPoint(value)
			if !ok {
				log.Debugf("form.build_payload: dropping %q, not a point: %v", field.Label, value)
				continue
			}
			payload.Latitude = &p.Lat
			payload.Longitude = &p.Lng
			continue
		}

		f, ok := asFloat(value)
		if !ok {
			log.Debugf("form.build_payload: dropping %q, not a number: %v", field.Label, value)
			continue
		}
		if field.FieldType == model.CoordinatesLat {
			payload.Latitude = &f
		} else {
			payload.Longitude = &f
		}
	}

	return payload, nil
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case *geo.Point:
		return v == nil
	}
	return false
}

func asPoint(v any) (p geo.Point, ok bool) {
	switch v := v.(type) {
	case geo.Point:
		p, ok = v, true
	case *geo.Point:
		p, ok = *v, true
	case map[string]any:
		lat, latOK := v["lat"].(float64)
		lng, lngOK := v["lng"].(float64)
		p, ok = geo.Point{Lat: lat, Lng: lng}, latOK && lngOK
	}
	return p, ok && p.Valid()
}

func asFloat(v any) (f float64, ok bool) {
	switch v := v.(type) {
	case float64:
		f, ok = v, true
	case float32:
		f, ok = float64(v), true
	case int:
		f, ok = float64(v), true
	case int64:
		f, ok = float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		f, ok = parsed, err == nil
	}
	return f, ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}
