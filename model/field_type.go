package model

import "fmt"

// FieldType is the closed set of input kinds a questionnaire element can have.
type FieldType string

const (
	Text           FieldType = "text"
	Number         FieldType = "number"
	Date           FieldType = "date"
	Email          FieldType = "email"
	CoordinatesLat FieldType = "coordinates_lat"
	CoordinatesLon FieldType = "coordinates_lon"
	MapCoordinates FieldType = "map_coordinates"
)

var FieldTypes = []FieldType{Text, Number, Date, Email, CoordinatesLat, CoordinatesLon, MapCoordinates}

func ParseFieldType(s string) (FieldType, error) {
	for _, t := range FieldTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

func (t FieldType) Valid() bool {
	_, err := ParseFieldType(string(t))
	return err == nil
}

// Geo reports whether values of this type feed the latitude/longitude pair
// instead of data_values.
func (t FieldType) Geo() bool {
	switch t {
	case CoordinatesLat, CoordinatesLon, MapCoordinates:
		return true
	}
	return false
}

// Name is the label shown to the questionnaire author.
func (t FieldType) Name() string {
	switch t {
	case Text:
		return "Short text"
	case Number:
		return "Number"
	case Date:
		return "Date"
	case Email:
		return "E-mail address"
	case CoordinatesLat:
		return "Coordinate (latitude)"
	case CoordinatesLon:
		return "Coordinate (longitude)"
	case MapCoordinates:
		return "Point on map"
	}
	return string(t)
}

func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *FieldType) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
