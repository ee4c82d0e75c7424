package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/geo"
	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
	"github.com/bobby-s-dev/grib-forecast-cache/pkg/gribsource"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Refresher rebuilds the forecast snapshot from a grib file: it extracts the
// file's bounds, lays a lattice of sample points over them, pulls the
// forecast at every point through a bounded worker pool, and publishes the
// result as the new current snapshot.
type Refresher struct {
	source      gribsource.Source
	cache       *SnapshotCache
	logger      *zap.Logger
	latStep     float64
	lngStep     float64
	concurrency int

	mu           sync.RWMutex
	lastRefresh  time.Time
	successCount int
	failureCount int
}

type RefresherConfig struct {
	LatStep     float64
	LngStep     float64
	Concurrency int
}

func NewRefresher(source gribsource.Source, cache *SnapshotCache, config RefresherConfig, logger *zap.Logger) *Refresher {
	latStep := config.LatStep
	if latStep <= 0 {
		latStep = 0.2
	}
	lngStep := config.LngStep
	if lngStep <= 0 {
		lngStep = 0.5
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	return &Refresher{
		source:      source,
		cache:       cache,
		logger:      logger,
		latStep:     latStep,
		lngStep:     lngStep,
		concurrency: concurrency,
	}
}

// Refresh rebuilds the snapshot from gribFile. The pipeline is all-or-nothing:
// any failure aborts the refresh and leaves the previously published snapshot
// untouched. Publication is a single atomic swap performed only after every
// point has been extracted.
func (r *Refresher) Refresh(ctx context.Context, gribFile string) error {
	start := time.Now()

	r.mu.Lock()
	r.lastRefresh = start
	r.mu.Unlock()

	r.logger.Info("Starting cache refresh", zap.String("grib_file", gribFile))

	bounds, err := r.source.ExtractBounds(ctx, gribFile)
	if err != nil {
		r.recordFailure()
		return fmt.Errorf("failed to extract bounds: %w", err)
	}

	locations := geo.GenerateLocations(bounds, r.latStep, r.lngStep)

	forecasts, err := r.extractForecasts(ctx, locations, gribFile)
	if err != nil {
		r.recordFailure()
		return fmt.Errorf("failed to extract forecasts: %w", err)
	}

	r.cache.Publish(&models.ForecastSnapshot{
		Locations: forecasts,
		BuiltAt:   time.Now(),
		GribFile:  gribFile,
	})

	r.recordSuccess()
	r.logger.Info("Cache refresh completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("points", len(forecasts)))

	return nil
}

// extractForecasts fans the per-point extraction calls out over a worker pool
// of at most r.concurrency goroutines. Result i always corresponds to input
// location i regardless of completion order. The group is not bound to a
// cancelling context: once started, every in-flight call runs to completion
// or failure, and the first error fails the whole batch.
func (r *Refresher) extractForecasts(ctx context.Context, locations []models.GridPoint, gribFile string) ([]models.ForecastLocation, error) {
	results := make([]models.ForecastLocation, len(locations))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, loc := range locations {
		i, loc := i, loc
		g.Go(func() error {
			items, err := r.source.ExtractPoint(ctx, gribFile, loc.Lat, loc.Lng)
			if err != nil {
				return fmt.Errorf("point (%v, %v): %w", loc.Lat, loc.Lng, err)
			}

			results[i] = models.ForecastLocation{
				Lat:   loc.Lat,
				Lng:   loc.Lng,
				Items: items,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (r *Refresher) recordSuccess() {
	r.mu.Lock()
	r.successCount++
	r.mu.Unlock()
}

func (r *Refresher) recordFailure() {
	r.mu.Lock()
	r.failureCount++
	r.mu.Unlock()
}

// LastRefreshTime returns when the most recent refresh attempt started.
func (r *Refresher) LastRefreshTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRefresh
}

func (r *Refresher) GetStats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[string]interface{}{
		"last_refresh":  r.lastRefresh,
		"success_count": r.successCount,
		"failure_count": r.failureCount,
		"concurrency":   r.concurrency,
	}

	if snapshot := r.cache.Current(); snapshot != nil {
		stats["cached_points"] = len(snapshot.Locations)
		stats["built_at"] = snapshot.BuiltAt
		stats["grib_file"] = snapshot.GribFile
	}

	return stats
}
