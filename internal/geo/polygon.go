package geo

import (
	"math"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
)

const segmentEpsilon = 1e-9

// BoxPolygon returns the four corners of the box in counter-clockwise
// winding order, starting at the south-west corner.
func BoxPolygon(box models.BoundingBox) []models.Coordinate {
	return []models.Coordinate{
		{Lat: box.SwCorner.Lat, Lng: box.SwCorner.Lng},
		{Lat: box.NeCorner.Lat, Lng: box.SwCorner.Lng},
		{Lat: box.NeCorner.Lat, Lng: box.NeCorner.Lng},
		{Lat: box.SwCorner.Lat, Lng: box.NeCorner.Lng},
	}
}

// ContainsPoint reports whether p lies inside the polygon. The test is planar
// ray casting over raw lat/lng degrees and is boundary-inclusive: a point on
// an edge or vertex counts as inside. Polygons crossing the antimeridian or
// enclosing a pole are not supported.
func ContainsPoint(polygon []models.Coordinate, p models.Coordinate) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := polygon[j], polygon[i]

		if onSegment(a, b, p) {
			return true
		}

		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			crossLng := (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
			if p.Lng < crossLng {
				inside = !inside
			}
		}
	}

	return inside
}

// onSegment reports whether p lies on the segment between a and b, within a
// small tolerance for floating-point noise.
func onSegment(a, b, p models.Coordinate) bool {
	cross := (b.Lng-a.Lng)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lng-a.Lng)
	if math.Abs(cross) > segmentEpsilon {
		return false
	}

	return p.Lat >= math.Min(a.Lat, b.Lat)-segmentEpsilon &&
		p.Lat <= math.Max(a.Lat, b.Lat)+segmentEpsilon &&
		p.Lng >= math.Min(a.Lng, b.Lng)-segmentEpsilon &&
		p.Lng <= math.Max(a.Lng, b.Lng)+segmentEpsilon
}
