package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
	"github.com/bobby-s-dev/grib-forecast-cache/pkg/gribsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource is an instrumented stand-in for the external grib tool. It
// stamps every item with the configured generation and tracks how many
// extraction calls are in flight at once.
type fakeSource struct {
	bounds    models.BoundingBox
	boundsErr error
	pointErr  error
	delay     time.Duration
	gen       atomic.Int64

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (f *fakeSource) ExtractBounds(_ context.Context, _ string) (models.BoundingBox, error) {
	if f.boundsErr != nil {
		return models.BoundingBox{}, f.boundsErr
	}
	return f.bounds, nil
}

func (f *fakeSource) ExtractPoint(_ context.Context, _ string, lat, lng float64) ([]models.ForecastItem, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if f.pointErr != nil {
		return nil, f.pointErr
	}

	return []models.ForecastItem{
		{
			Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Values: map[string]float64{
				"lat": lat,
				"lng": lng,
				"gen": float64(f.gen.Load()),
			},
		},
	}, nil
}

func helsinkiBounds() models.BoundingBox {
	return models.BoundingBox{
		SwCorner: models.Coordinate{Lat: 60.0, Lng: 24.0},
		NeCorner: models.Coordinate{Lat: 61.0, Lng: 25.0},
	}
}

func newTestRefresher(source gribsource.Source, concurrency int) (*Refresher, *SnapshotCache) {
	logger := zap.NewNop()
	cache := NewSnapshotCache(logger)
	refresher := NewRefresher(source, cache, RefresherConfig{Concurrency: concurrency}, logger)
	return refresher, cache
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	source := &fakeSource{bounds: helsinkiBounds()}
	refresher, cache := newTestRefresher(source, 4)

	require.NoError(t, refresher.Refresh(context.Background(), "data/test.grib"))

	snapshot := cache.Current()
	require.NotNil(t, snapshot)

	// 5 latitudes x 2 longitudes with the default 0.2/0.5 steps.
	require.Len(t, snapshot.Locations, 10)
	assert.Equal(t, "data/test.grib", snapshot.GribFile)

	first := snapshot.Locations[0]
	assert.Equal(t, 60.0, first.Lat)
	assert.Equal(t, 24.0, first.Lng)

	second := snapshot.Locations[1]
	assert.Equal(t, 60.0, second.Lat)
	assert.Equal(t, 24.5, second.Lng)

	last := snapshot.Locations[9]
	assert.Equal(t, 60.8, last.Lat)
	assert.Equal(t, 24.5, last.Lng)
}

func TestRefreshPreservesLocationOrder(t *testing.T) {
	for concurrency := 1; concurrency <= 4; concurrency++ {
		source := &fakeSource{bounds: helsinkiBounds(), delay: time.Millisecond}
		refresher, cache := newTestRefresher(source, concurrency)

		require.NoError(t, refresher.Refresh(context.Background(), "data/test.grib"))

		snapshot := cache.Current()
		require.NotNil(t, snapshot)

		// Every location's items were extracted at that location's coordinate.
		for _, loc := range snapshot.Locations {
			require.Len(t, loc.Items, 1)
			assert.Equal(t, loc.Lat, loc.Items[0].Values["lat"], "concurrency %d", concurrency)
			assert.Equal(t, loc.Lng, loc.Items[0].Values["lng"], "concurrency %d", concurrency)
		}
	}
}

func TestRefreshBoundsConcurrency(t *testing.T) {
	source := &fakeSource{
		bounds: models.BoundingBox{
			SwCorner: models.Coordinate{Lat: 0, Lng: 0},
			NeCorner: models.Coordinate{Lat: 2, Lng: 5},
		},
		delay: time.Millisecond,
	}
	refresher, _ := newTestRefresher(source, 3)

	require.NoError(t, refresher.Refresh(context.Background(), "data/test.grib"))

	assert.Positive(t, source.maxInFlight.Load())
	assert.LessOrEqual(t, source.maxInFlight.Load(), int64(3))
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	source := &fakeSource{bounds: helsinkiBounds()}
	refresher, cache := newTestRefresher(source, 2)

	require.NoError(t, refresher.Refresh(context.Background(), "data/test.grib"))
	previous := cache.Current()
	require.NotNil(t, previous)

	source.pointErr = &gribsource.DataSourceError{Op: "extract point", Err: errors.New("exit status 1")}

	err := refresher.Refresh(context.Background(), "data/test.grib")
	require.Error(t, err)

	var dsErr *gribsource.DataSourceError
	assert.ErrorAs(t, err, &dsErr)

	// Last-known-good snapshot stays live.
	assert.Same(t, previous, cache.Current())
}

func TestRefreshBoundsFailurePublishesNothing(t *testing.T) {
	source := &fakeSource{
		boundsErr: &gribsource.DataSourceError{Op: "extract bounds", Err: errors.New("expected 4 values, got 3")},
	}
	refresher, cache := newTestRefresher(source, 2)

	err := refresher.Refresh(context.Background(), "data/test.grib")
	require.Error(t, err)

	var dsErr *gribsource.DataSourceError
	assert.ErrorAs(t, err, &dsErr)
	assert.Nil(t, cache.Current())
}

func TestQueryDuringRefreshSeesWholeSnapshots(t *testing.T) {
	source := &fakeSource{bounds: helsinkiBounds()}
	source.gen.Store(1)
	refresher, cache := newTestRefresher(source, 2)
	query := NewQueryService(cache, zap.NewNop())

	require.NoError(t, refresher.Refresh(context.Background(), "data/test.grib"))

	// Second generation takes long enough for queries to interleave.
	source.gen.Store(2)
	source.delay = time.Millisecond

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})

	go func() {
		defer wg.Done()
		defer close(done)
		assert.NoError(t, refresher.Refresh(context.Background(), "data/test.grib"))
	}()

	box := helsinkiBounds()
	for {
		locations := query.Query(box, time.Time{})
		require.NotEmpty(t, locations)

		// All locations in one query result must come from the same snapshot.
		gen := locations[0].Items[0].Values["gen"]
		for _, loc := range locations {
			require.Equal(t, gen, loc.Items[0].Values["gen"])
		}

		select {
		case <-done:
			wg.Wait()

			locations := query.Query(box, time.Time{})
			require.NotEmpty(t, locations)
			assert.Equal(t, 2.0, locations[0].Items[0].Values["gen"])
			return
		default:
		}
	}
}
