package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
	"github.com/bobby-s-dev/grib-forecast-cache/internal/scheduler"
	"github.com/bobby-s-dev/grib-forecast-cache/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

type Handler struct {
	query     *services.QueryService
	refresher *services.Refresher
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

func NewHandler(query *services.QueryService, refresher *services.Refresher, sched *scheduler.Scheduler, logger *zap.Logger) *Handler {
	return &Handler{
		query:     query,
		refresher: refresher,
		scheduler: sched,
		logger:    logger,
	}
}

// forecastQuery holds the bounding box and optional start time of a forecast
// query.
type forecastQuery struct {
	SwLat float64 `validate:"gte=-90,lte=90"`
	SwLng float64 `validate:"gte=-180,lte=180"`
	NeLat float64 `validate:"gte=-90,lte=90"`
	NeLng float64 `validate:"gte=-180,lte=180"`
	From  time.Time
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.SwLat, err = parseCoord(c, "sw_lat"); err != nil {
		return err
	}
	if q.SwLng, err = parseCoord(c, "sw_lng"); err != nil {
		return err
	}
	if q.NeLat, err = parseCoord(c, "ne_lat"); err != nil {
		return err
	}
	if q.NeLng, err = parseCoord(c, "ne_lng"); err != nil {
		return err
	}

	// "from" is optional; the zero time means no lower bound.
	if fromStr := c.Query("from"); fromStr != "" {
		from, err := parseTime(fromStr)
		if err != nil {
			return err
		}
		q.From = from
	}

	return validate.Struct(q)
}

func (q *forecastQuery) boundingBox() models.BoundingBox {
	return models.BoundingBox{
		SwCorner: models.Coordinate{Lat: q.SwLat, Lng: q.SwLng},
		NeCorner: models.Coordinate{Lat: q.NeLat, Lng: q.NeLng},
	}
}

// GetForecasts handles GET /api/v1/forecasts
func (h *Handler) GetForecasts(c *fiber.Ctx) error {
	var req forecastQuery
	if err := req.bind(c); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	locations := h.query.Query(req.boundingBox(), req.From)

	h.logger.Debug("Forecast query served",
		zap.Float64("sw_lat", req.SwLat),
		zap.Float64("sw_lng", req.SwLng),
		zap.Float64("ne_lat", req.NeLat),
		zap.Float64("ne_lng", req.NeLng),
		zap.Int("matches", len(locations)))

	return c.JSON(fiber.Map{
		"count":     len(locations),
		"locations": locations,
	})
}

// TriggerRefresh handles POST /api/v1/refresh
func (h *Handler) TriggerRefresh(c *fiber.Ctx) error {
	h.scheduler.ForceRun()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "refresh triggered",
	})
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "healthy",
		"timestamp":    time.Now(),
		"last_refresh": h.refresher.LastRefreshTime(),
		"uptime":       time.Since(startTime).String(),
	})
}

// GetMetrics handles GET /api/v1/metrics
func (h *Handler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"metrics":   h.refresher.GetStats(),
		"timestamp": time.Now(),
	})
}

func parseCoord(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, errors.New(name + " parameter is required")
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be a decimal number")
	}

	return value, nil
}

// parseTime accepts either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

var startTime = time.Now()
