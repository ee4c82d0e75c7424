package geo

import (
	"math"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
)

// GenerateLocations enumerates the lattice of sample points covering bounds.
// Latitudes run from the south edge up to but excluding the north edge in
// latStep increments, longitudes likewise from west to east in lngStep
// increments. Every coordinate is rounded to one decimal place. The result is
// the full cross product, west-to-east within each latitude row.
//
// The default steps are anisotropic (0.2 lat vs 0.5 lng) because a degree of
// longitude covers less ground than a degree of latitude at mid-latitudes.
func GenerateLocations(bounds models.BoundingBox, latStep, lngStep float64) []models.GridPoint {
	lats := stepRange(bounds.SwCorner.Lat, bounds.NeCorner.Lat, latStep)
	lngs := stepRange(bounds.SwCorner.Lng, bounds.NeCorner.Lng, lngStep)

	points := make([]models.GridPoint, 0, len(lats)*len(lngs))
	for _, lat := range lats {
		for _, lng := range lngs {
			points = append(points, models.GridPoint{Lat: lat, Lng: lng})
		}
	}

	return points
}

// stepRange returns the half-open range [from, to) in step increments, each
// value rounded to one decimal place. A degenerate range or non-positive step
// yields an empty slice.
func stepRange(from, to, step float64) []float64 {
	if step <= 0 {
		return nil
	}

	// Multiply instead of accumulating so float error does not drift past the
	// upper bound.
	var values []float64
	for i := 0; ; i++ {
		v := from + float64(i)*step
		if v >= to {
			break
		}
		values = append(values, roundTo1(v))
	}

	return values
}

// roundTo1 rounds to one decimal, half away from zero.
func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
