package services

import (
	"sync/atomic"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
	"go.uber.org/zap"
)

// SnapshotCache holds the currently published forecast snapshot. A snapshot
// is replaced as a whole on every successful refresh and never edited in
// place, so readers take a reference without locking. A reader that grabbed
// the old snapshot keeps a valid view until it drops the reference.
type SnapshotCache struct {
	current atomic.Pointer[models.ForecastSnapshot]
	logger  *zap.Logger
}

func NewSnapshotCache(logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{
		logger: logger,
	}
}

// Current returns the published snapshot, or nil if no refresh has ever
// succeeded. Callers must not modify the returned snapshot.
func (c *SnapshotCache) Current() *models.ForecastSnapshot {
	return c.current.Load()
}

// Publish atomically replaces the published snapshot. Concurrent readers see
// either the entirely-old or entirely-new snapshot, never a mix.
func (c *SnapshotCache) Publish(snapshot *models.ForecastSnapshot) {
	c.current.Store(snapshot)

	c.logger.Debug("Snapshot published",
		zap.Int("locations", len(snapshot.Locations)),
		zap.Time("built_at", snapshot.BuiltAt))
}
