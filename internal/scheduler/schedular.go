package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/services"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers periodic cache refreshes. A refresh that is still
// running when the next tick fires is not stacked; the tick is skipped.
type Scheduler struct {
	refresher *services.Refresher
	logger    *zap.Logger
	gribFile  string
	schedule  string
	cron      *cron.Cron
	running   atomic.Bool
}

func NewScheduler(refresher *services.Refresher, gribFile, schedule string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		logger:    logger,
		gribFile:  gribFile,
		schedule:  schedule,
	}
}

func (s *Scheduler) Start() error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.schedule, s.runRefresh); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("schedule", s.schedule),
		zap.String("grib_file", s.gribFile))

	// Build the first snapshot right away instead of waiting for the first tick.
	go s.runRefresh()

	return nil
}

func (s *Scheduler) runRefresh() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("Skipping refresh, previous run still in progress")
		return
	}
	defer s.running.Store(false)

	if err := s.refresher.Refresh(context.Background(), s.gribFile); err != nil {
		s.logger.Error("Scheduled refresh failed", zap.Error(err))
	}
}

// ForceRun triggers a refresh outside the cron schedule. It returns
// immediately; the refresh runs in the background under the same
// skip-if-running guard as scheduled runs.
func (s *Scheduler) ForceRun() {
	s.logger.Info("Manually triggering cache refresh")
	go s.runRefresh()
}

// Stop stops the cron loop and waits for an in-flight refresh job to return.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}

	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}
