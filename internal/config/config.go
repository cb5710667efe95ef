// Package config provides configuration management for the gaiaCore service.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gaiaCore service.
type Config struct {
	// Server settings
	Port string

	// Database settings
	DatabaseURL    string
	MigrationsPath string

	// Sink settings
	SinkDSN   string
	OGRBinary string

	// Pipeline settings
	WorkDir        string
	DefaultSchema  string
	DefaultSRID    int
	GeometryColumn string

	// Download settings
	DownloadTimeoutSeconds int
	DownloadMaxAttempts    int
	DownloadRateLimit      float64
	DownloadRateBurst      int

	// Artifact store settings
	S3EndpointURL     string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3UseSSL          bool
	ArtifactLocalDir  string

	// Run log settings
	RunLogEnabled bool
	RunLogBucket  string
	RunLogPrefix  string

	// Archive mirror settings
	MirrorEnabled bool
	MirrorBucket  string
}

// Load reads configuration from the environment, after loading a .env file if
// one is present. When GAIA_CONFIG names a YAML file, values set in that file
// take precedence over the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("GAIA_API_PORT", "3000"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("GAIA_MIGRATIONS_PATH", "./migrations"),

		SinkDSN:   getEnv("GAIA_SINK_DSN", ""),
		OGRBinary: getEnv("GAIA_OGR2OGR_BIN", "ogr2ogr"),

		WorkDir:        getEnv("GAIA_WORK_DIR", ""),
		DefaultSchema:  getEnv("GAIA_DEFAULT_SCHEMA", "public"),
		DefaultSRID:    getEnvInt("GAIA_DEFAULT_SRID", 4326),
		GeometryColumn: getEnv("GAIA_GEOMETRY_COLUMN", "geom"),

		DownloadTimeoutSeconds: getEnvInt("GAIA_DOWNLOAD_TIMEOUT_SECONDS", 300),
		DownloadMaxAttempts:    getEnvInt("GAIA_DOWNLOAD_MAX_ATTEMPTS", 1),
		DownloadRateLimit:      getEnvFloat("GAIA_DOWNLOAD_RATE_LIMIT", 10),
		DownloadRateBurst:      getEnvInt("GAIA_DOWNLOAD_RATE_BURST", 5),

		S3EndpointURL:     getEnv("MINIO_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("MINIO_ACCESS_KEY", ""),
		S3SecretAccessKey: getEnv("MINIO_SECRET_KEY", ""),
		S3Region:          getEnv("MINIO_REGION", ""),
		S3UseSSL:          getEnvBool("MINIO_USE_SSL", false),
		ArtifactLocalDir:  getEnv("GAIA_ARTIFACT_DIR", ""),

		RunLogEnabled: getEnvBool("GAIA_RUNLOG_ENABLED", true),
		RunLogBucket:  getEnv("GAIA_RUNLOG_BUCKET", "gaia-runlogs"),
		RunLogPrefix:  getEnv("GAIA_RUNLOG_PREFIX", "runs"),

		MirrorEnabled: getEnvBool("GAIA_MIRROR_ENABLED", false),
		MirrorBucket:  getEnv("GAIA_MIRROR_BUCKET", "gaia-archives"),
	}

	if path := os.Getenv("GAIA_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.SinkDSN == "" {
		cfg.SinkDSN = cfg.DatabaseURL
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
