// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/pkg/logging"
)

// Config holds every setting the server needs.
type Config struct {
	Port        int
	DBPath      string
	LogLevel    slog.Level
	MinorUnits  money.Places
	MetricsPath string
}

// Load reads the environment, applying defaults for unset variables.
func Load() (Config, error) {
	cfg := Config{
		DBPath:      getEnv("DB_PATH", "./data/groups.db"),
		MetricsPath: getEnv("METRICS_PATH", "/metrics"),
	}

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return Config{}, err
	}
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("PORT out of range: %d", port)
	}
	cfg.Port = port

	units, err := getEnvInt("CURRENCY_MINOR_UNITS", int(money.DefaultPlaces))
	if err != nil {
		return Config{}, err
	}
	if units < 0 || units > 8 {
		return Config{}, fmt.Errorf("CURRENCY_MINOR_UNITS out of range: %d", units)
	}
	cfg.MinorUnits = money.Places(units)

	level, err := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if !strings.HasPrefix(cfg.MetricsPath, "/") {
		return Config{}, fmt.Errorf("METRICS_PATH must start with '/': %q", cfg.MetricsPath)
	}

	return cfg, nil
}

// Addr is the listen address for the configured port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
