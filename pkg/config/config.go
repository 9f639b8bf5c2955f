package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anrid/colombia-stats/pkg/stats"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds application configuration
type Config struct {
	StatsPath         string
	GeometryPath      string
	CachePath         string
	GeometryEncoding  string
	SimplifyTolerance float64
	RebuildCache      bool

	StatsNameColumn    string
	StatsCountColumn   string
	StatsAverageColumn string
	GeometryNameField  string

	Port        string
	CORSOrigins []string
	LogLevel    string
	Environment string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		StatsPath:          getEnv("STATS_PATH", "resumen_departamentos.csv"),
		GeometryPath:       getEnv("GEOMETRY_PATH", "shapefiles/MGN_DPTO_POLITICO.shp"),
		CachePath:          getEnv("CACHE_PATH", "merged_programas.geojson"),
		GeometryEncoding:   getEnv("GEOMETRY_ENCODING", "utf-8"),
		StatsNameColumn:    getEnv("STATS_NAME_COLUMN", "DEPARTAMENTO_DE_OFERTA_DEL_PROGRAMA"),
		StatsCountColumn:   getEnv("STATS_COUNT_COLUMN", "CANTIDAD_PROGRAMAS"),
		StatsAverageColumn: getEnv("STATS_AVERAGE_COLUMN", "PROMEDIO_MATRICULADOS"),
		GeometryNameField:  getEnv("GEOMETRY_NAME_FIELD", "DPTO_CNMBR"),
		Port:               getEnv("PORT", "8050"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        getEnv("ENVIRONMENT", "development"),
	}

	var err error
	cfg.SimplifyTolerance, err = strconv.ParseFloat(getEnv("SIMPLIFY_TOLERANCE", "0.02"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMPLIFY_TOLERANCE: %w", err)
	}
	if cfg.SimplifyTolerance < 0 {
		return nil, fmt.Errorf("invalid SIMPLIFY_TOLERANCE: must not be negative")
	}

	cfg.RebuildCache, err = strconv.ParseBool(getEnv("REBUILD_CACHE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REBUILD_CACHE: %w", err)
	}

	for _, o := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg, nil
}

// LoaderConfig returns the settings of the merged dataset loader.
func (c *Config) LoaderConfig() stats.LoaderConfig {
	return stats.LoaderConfig{
		StatsPath: c.StatsPath,
		StatsColumns: stats.TableColumns{
			Name:    c.StatsNameColumn,
			Count:   c.StatsCountColumn,
			Average: c.StatsAverageColumn,
		},
		Geometry: stats.GeometrySource{
			Path:      c.GeometryPath,
			NameField: c.GeometryNameField,
			Encoding:  c.GeometryEncoding,
		},
		CachePath:         c.CachePath,
		SimplifyTolerance: c.SimplifyTolerance,
		Rebuild:           c.RebuildCache,
	}
}

// NewLogger builds the process logger. Production uses JSON output,
// everything else the console encoder.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zc := zap.NewDevelopmentConfig()
	if c.Environment == "production" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
