// Package geo holds the coordinate type shared by the map picker, the
// visualizer and the backend's proximity search.
package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite numbers.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Distance returns the great circle distance in meters between a and b.
func Distance(a, b Point) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadius * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
