// Package mapview turns submitted records into map markers.
package mapview

import (
	"context"
	"time"

	"github.com/mbolis/geo-survey/client"
	"github.com/mbolis/geo-survey/geo"
	"github.com/mbolis/geo-survey/model"
	"github.com/montanaflynn/stats"
)

var (
	DefaultCenter = geo.Point{Lat: 46.603354, Lng: 1.888334}
	DefaultZoom   = 6
)

type DataSource interface {
	ListData(ctx context.Context, q client.DataQuery) ([]model.DataObject, error)
}

type Marker struct {
	ID              int
	QuestionnaireID int
	Position        geo.Point
	SubmittedAt     time.Time
	Submitter       string
	// Attributes keep the order the backend sent them in.
	Attributes     model.Values
	AdditionalInfo string
}

type Map struct {
	Markers []Marker
	Center  geo.Point
	Zoom    int
}

// Load fetches every record once and places a marker for each one that has
// both coordinates. There is no polling; call Load again to refresh.
func Load(ctx context.Context, src DataSource, q client.DataQuery) (Map, error) {
	objs, err := src.ListData(ctx, q)
	if err != nil {
		return Map{}, err
	}

	markers := Markers(objs)
	return Map{
		Markers: markers,
		Center:  Center(markers),
		Zoom:    DefaultZoom,
	}, nil
}

func Markers(objs []model.DataObject) []Marker {
	markers := make([]Marker, 0, len(objs))
	for _, obj := range objs {
		pt, ok := obj.Point()
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			ID:              obj.ID,
			QuestionnaireID: obj.QuestionnaireID,
			Position:        pt,
			SubmittedAt:     obj.SubmissionDate,
			Submitter:       deref(obj.SubmitterName),
			Attributes:      obj.DataValues,
			AdditionalInfo:  deref(obj.AdditionalInfo),
		})
	}
	return markers
}

// Center is the mean marker position, or DefaultCenter without markers.
func Center(markers []Marker) geo.Point {
	if len(markers) == 0 {
		return DefaultCenter
	}

	lats := make(stats.Float64Data, len(markers))
	lngs := make(stats.Float64Data, len(markers))
	for i, m := range markers {
		lats[i] = m.Position.Lat
		lngs[i] = m.Position.Lng
	}

	lat, err := stats.Mean(lats)
	if err != nil {
		return DefaultCenter
	}
	lng, err := stats.Mean(lngs)
	if err != nil {
		return DefaultCenter
	}
	return geo.Point{Lat: lat, Lng: lng}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
