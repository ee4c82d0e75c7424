package services

import (
	"time"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/geo"
	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
	"go.uber.org/zap"
)

// QueryService answers spatial/time-bounded reads against the current
// snapshot. It never takes a lock and never modifies the snapshot: every
// result is built from freshly allocated locations and item slices, so
// queries and an in-flight refresh proceed fully in parallel.
type QueryService struct {
	cache  *SnapshotCache
	logger *zap.Logger
}

func NewQueryService(cache *SnapshotCache, logger *zap.Logger) *QueryService {
	return &QueryService{
		cache:  cache,
		logger: logger,
	}
}

// Query returns a copy of every cached location inside box, keeping only the
// items strictly after startTime. A zero startTime means no lower bound.
// Containment is boundary-inclusive (see geo.ContainsPoint). An inverted box
// or an empty cache yields an empty result, never an error. Duplicate item
// timestamps are kept as-is.
func (q *QueryService) Query(box models.BoundingBox, startTime time.Time) []models.ForecastLocation {
	results := []models.ForecastLocation{}

	if !box.Valid() {
		q.logger.Debug("Rejecting inverted query box",
			zap.Float64("sw_lat", box.SwCorner.Lat),
			zap.Float64("ne_lat", box.NeCorner.Lat))
		return results
	}

	snapshot := q.cache.Current()
	if snapshot == nil {
		return results
	}

	polygon := geo.BoxPolygon(box)

	for _, loc := range snapshot.Locations {
		point := models.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
		if !geo.ContainsPoint(polygon, point) {
			continue
		}

		items := make([]models.ForecastItem, 0, len(loc.Items))
		for _, item := range loc.Items {
			if item.Time.After(startTime) {
				items = append(items, item)
			}
		}

		results = append(results, models.ForecastLocation{
			Lat:   loc.Lat,
			Lng:   loc.Lng,
			Items: items,
		})
	}

	return results
}
