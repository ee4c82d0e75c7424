package gribsource

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bobby-s-dev/grib-forecast-cache/internal/models"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Metadata keys queried from the grib file, in the order the bounds parser
// expects them on the first output line.
var boundsKeys = []string{
	"latitudeOfFirstGridPointInDegrees",
	"longitudeOfFirstGridPointInDegrees",
	"latitudeOfLastGridPointInDegrees",
	"longitudeOfLastGridPointInDegrees",
}

// Source provides access to the external grid-data tool.
type Source interface {
	// ExtractBounds returns the spatial extent of the grib file.
	ExtractBounds(ctx context.Context, gribFile string) (models.BoundingBox, error)
	// ExtractPoint returns the forecast time series at the grid point nearest
	// to the given coordinate. Item order is whatever the tool emits.
	ExtractPoint(ctx context.Context, gribFile string, lat, lng float64) ([]models.ForecastItem, error)
}

// Client invokes the grib_get tool (eccodes) as a subprocess. All invocations
// run through a shared circuit breaker so that a persistently broken tool or
// missing data file stops spawning processes quickly.
type Client struct {
	binary  string
	runner  Runner
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
}

type ClientConfig struct {
	Binary         string
	CallTimeout    time.Duration
	BreakerTimeout time.Duration
}

func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	binary := config.Binary
	if binary == "" {
		binary = "grib_get"
	}

	breakerSettings := gobreaker.Settings{
		Name:        "gribsource",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		binary:  binary,
		runner:  &execRunner{timeout: config.CallTimeout},
		logger:  logger,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings),
	}
}

// ExtractBounds queries the four corner metadata keys and parses the first
// output line as four whitespace-separated decimal numbers.
func (c *Client) ExtractBounds(ctx context.Context, gribFile string) (models.BoundingBox, error) {
	out, err := c.run(ctx, "-p", strings.Join(boundsKeys, ","), gribFile)
	if err != nil {
		return models.BoundingBox{}, &DataSourceError{Op: "extract bounds", Err: err}
	}

	fields := strings.Fields(firstLine(out))
	if len(fields) < 4 {
		return models.BoundingBox{}, &DataSourceError{
			Op:  "extract bounds",
			Err: fmt.Errorf("expected 4 values, got %d", len(fields)),
		}
	}

	values := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return models.BoundingBox{}, &DataSourceError{
				Op:  "extract bounds",
				Err: fmt.Errorf("parsing %q: %w", fields[i], err),
			}
		}
		values[i] = v
	}

	return models.BoundingBox{
		SwCorner: models.Coordinate{Lat: values[0], Lng: values[1]},
		NeCorner: models.Coordinate{Lat: values[2], Lng: values[3]},
	}, nil
}

// ExtractPoint reads the value of every grib message at the nearest grid
// point. Each output line carries "dataDate dataTime shortName value"; lines
// sharing a dataDate/dataTime pair are folded into one forecast item, in
// first-appearance order.
func (c *Client) ExtractPoint(ctx context.Context, gribFile string, lat, lng float64) ([]models.ForecastItem, error) {
	nearest := fmt.Sprintf("%v,%v,1", lat, lng)

	out, err := c.run(ctx, "-l", nearest, "-p", "dataDate,dataTime,shortName", gribFile)
	if err != nil {
		return nil, &DataSourceError{Op: "extract point", Err: err}
	}

	items, err := parsePointOutput(out)
	if err != nil {
		return nil, &DataSourceError{Op: "extract point", Err: err}
	}

	return items, nil
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.runner.Run(ctx, c.binary, args...)
	})
	if err != nil {
		return nil, err
	}

	out := result.([]byte)
	c.logger.Debug("Grib tool invocation succeeded",
		zap.Strings("args", args),
		zap.Int("output_size", len(out)))

	return out, nil
}

func parsePointOutput(out []byte) ([]models.ForecastItem, error) {
	var items []models.ForecastItem
	index := make(map[time.Time]int)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("malformed output line %q", line)
		}

		ts, err := parseMessageTime(fields[0], fields[1])
		if err != nil {
			return nil, err
		}

		value, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing value %q: %w", fields[3], err)
		}

		i, ok := index[ts]
		if !ok {
			i = len(items)
			index[ts] = i
			items = append(items, models.ForecastItem{
				Time:   ts,
				Values: make(map[string]float64),
			})
		}
		items[i].Values[fields[2]] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// parseMessageTime combines the grib dataDate (YYYYMMDD) and dataTime (HMM or
// HHMM, leading zeros stripped by the tool) into a UTC timestamp.
func parseMessageTime(date, hhmm string) (time.Time, error) {
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}

	ts, err := time.Parse("200601021504", date+hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %s %s: %w", date, hhmm, err)
	}

	return ts, nil
}

func firstLine(out []byte) string {
	if i := bytes.IndexByte(out, '\n'); i >= 0 {
		return string(out[:i])
	}
	return string(out)
}
