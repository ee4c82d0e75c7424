package models

import (
	"time"
)

// Coordinate is a point in floating-point degrees latitude/longitude.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GridPoint is a lattice-aligned coordinate at which a forecast is sampled.
type GridPoint = Coordinate

// BoundingBox is an axis-aligned rectangle in lat/lng space. It scopes both
// grid rebuilds and queries.
type BoundingBox struct {
	SwCorner Coordinate `json:"sw_corner"`
	NeCorner Coordinate `json:"ne_corner"`
}

// Valid reports whether the corners are not inverted.
func (b BoundingBox) Valid() bool {
	return b.SwCorner.Lat <= b.NeCorner.Lat && b.SwCorner.Lng <= b.NeCorner.Lng
}

// ForecastItem is one forecast time step at a location. Values is the opaque
// weather payload keyed by parameter short name.
type ForecastItem struct {
	Time   time.Time          `json:"time"`
	Values map[string]float64 `json:"values"`
}

// ForecastLocation holds the forecast time series extracted at one grid
// point. Item order follows the external tool's output and is not guaranteed
// to be chronological.
type ForecastLocation struct {
	Lat   float64        `json:"lat"`
	Lng   float64        `json:"lng"`
	Items []ForecastItem `json:"items"`
}

// ForecastSnapshot is one fully-built generation of the cached grid. A
// snapshot is never modified after it has been published.
type ForecastSnapshot struct {
	Locations []ForecastLocation `json:"locations"`
	BuiltAt   time.Time          `json:"built_at"`
	GribFile  string             `json:"grib_file"`
}
