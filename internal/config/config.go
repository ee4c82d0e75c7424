package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}

	Grib struct {
		File        string
		Binary      string
		CallTimeout time.Duration
	}

	Refresh struct {
		Schedule    string
		Concurrency int
		LatStep     float64
		LngStep     float64
	}

	CircuitBreaker struct {
		Timeout time.Duration
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("FIBER_PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("FIBER_READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("FIBER_WRITE_TIMEOUT", "10s"))

	// Grib tool configuration
	cfg.Grib.File = getEnv("GRIB_FILE", "data/forecast.grib")
	cfg.Grib.Binary = getEnv("GRIB_GET_BIN", "grib_get")
	cfg.Grib.CallTimeout = parseDuration(getEnv("GRIB_CALL_TIMEOUT", "30s"))

	// Refresh pipeline configuration. Concurrency 0 means one worker per CPU.
	cfg.Refresh.Schedule = getEnv("REFRESH_SCHEDULE", "@every 15m")
	cfg.Refresh.Concurrency = parseInt(getEnv("EXTRACT_CONCURRENCY", "0"))
	cfg.Refresh.LatStep = parseFloat(getEnv("GRID_LAT_STEP", "0.2"))
	cfg.Refresh.LngStep = parseFloat(getEnv("GRID_LNG_STEP", "0.5"))

	// Circuit breaker configuration
	cfg.CircuitBreaker.Timeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "30s"))

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}

func parseFloat(value string) float64 {
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		zap.L().Warn("Failed to parse float", zap.String("value", value), zap.Error(err))
		return 0
	}
	return floatValue
}
