package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Referential policies for the measurements -> stations link.
const (
	PolicyAdvisory = "advisory"
	PolicyEnforce  = "enforce"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// Driver is the database/sql driver name: "sqlite3" (mattn/go-sqlite3) or "sqlite" (modernc.org/sqlite).
	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// LogSQL routes every statement through the logging connector at debug level.
	LogSQL bool

	StationsCSV     string
	MeasurementsCSV string

	// ReferentialPolicy decides whether measurements.station is checked against stations.station.
	ReferentialPolicy string
}

// EnforceForeignKeys reports whether the connection should run with foreign_keys on.
func (c Config) EnforceForeignKeys() bool {
	return c.ReferentialPolicy == PolicyEnforce
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	driver := envOr("DB_DRIVER", "sqlite3")
	switch driver {
	case "sqlite3", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, sqlite)", driver)
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}

	connMaxLifetimeStr := envOr("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQLStr := envOr("DB_LOG_SQL", "false")
	logSQL, err := strconv.ParseBool(logSQLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", logSQLStr, err)
	}

	policy := strings.ToLower(envOr("REFERENTIAL_POLICY", PolicyAdvisory))
	switch policy {
	case PolicyAdvisory, PolicyEnforce:
	default:
		return Config{}, fmt.Errorf("invalid REFERENTIAL_POLICY %q (allowed: advisory, enforce)", policy)
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		Driver:            driver,
		DSN:               strings.TrimSpace(os.Getenv("DB_DSN")),
		Path:              envOr("SQLITE_PATH", "stations.db"),
		MaxOpenConns:      maxOpenConns,
		MaxIdleConns:      maxIdleConns,
		ConnMaxLifetime:   connMaxLifetime,
		LogSQL:            logSQL,
		StationsCSV:       envOr("STATIONS_CSV", "clean_stations.csv"),
		MeasurementsCSV:   envOr("MEASUREMENTS_CSV", "clean_measure.csv"),
		ReferentialPolicy: policy,
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
