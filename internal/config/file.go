package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config as an optional-field YAML document. Only fields
// present in the file are applied.
type fileConfig struct {
	Server struct {
		Port *string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL            *string `yaml:"url"`
		MigrationsPath *string `yaml:"migrations_path"`
	} `yaml:"database"`
	Sink struct {
		DSN       *string `yaml:"dsn"`
		OGRBinary *string `yaml:"ogr2ogr"`
	} `yaml:"sink"`
	Pipeline struct {
		WorkDir        *string `yaml:"work_dir"`
		DefaultSchema  *string `yaml:"default_schema"`
		DefaultSRID    *int    `yaml:"default_srid"`
		GeometryColumn *string `yaml:"geometry_column"`
	} `yaml:"pipeline"`
	Download struct {
		TimeoutSeconds *int     `yaml:"timeout_seconds"`
		MaxAttempts    *int     `yaml:"max_attempts"`
		RateLimit      *float64 `yaml:"rate_limit"`
		RateBurst      *int     `yaml:"rate_burst"`
	} `yaml:"download"`
	Artifacts struct {
		EndpointURL     *string `yaml:"endpoint_url"`
		AccessKeyID     *string `yaml:"access_key_id"`
		SecretAccessKey *string `yaml:"secret_access_key"`
		Region          *string `yaml:"region"`
		UseSSL          *bool   `yaml:"use_ssl"`
		LocalDir        *string `yaml:"local_dir"`
	} `yaml:"artifacts"`
	RunLog struct {
		Enabled *bool   `yaml:"enabled"`
		Bucket  *string `yaml:"bucket"`
		Prefix  *string `yaml:"prefix"`
	} `yaml:"run_log"`
	Mirror struct {
		Enabled *bool   `yaml:"enabled"`
		Bucket  *string `yaml:"bucket"`
	} `yaml:"mirror"`
}

// applyFile overlays the YAML file at path onto the config.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Server.Port)
	setString(&c.DatabaseURL, fc.Database.URL)
	setString(&c.MigrationsPath, fc.Database.MigrationsPath)
	setString(&c.SinkDSN, fc.Sink.DSN)
	setString(&c.OGRBinary, fc.Sink.OGRBinary)
	setString(&c.WorkDir, fc.Pipeline.WorkDir)
	setString(&c.DefaultSchema, fc.Pipeline.DefaultSchema)
	setInt(&c.DefaultSRID, fc.Pipeline.DefaultSRID)
	setString(&c.GeometryColumn, fc.Pipeline.GeometryColumn)
	setInt(&c.DownloadTimeoutSeconds, fc.Download.TimeoutSeconds)
	setInt(&c.DownloadMaxAttempts, fc.Download.MaxAttempts)
	setFloat(&c.DownloadRateLimit, fc.Download.RateLimit)
	setInt(&c.DownloadRateBurst, fc.Download.RateBurst)
	setString(&c.S3EndpointURL, fc.Artifacts.EndpointURL)
	setString(&c.S3AccessKeyID, fc.Artifacts.AccessKeyID)
	setString(&c.S3SecretAccessKey, fc.Artifacts.SecretAccessKey)
	setString(&c.S3Region, fc.Artifacts.Region)
	setBool(&c.S3UseSSL, fc.Artifacts.UseSSL)
	setString(&c.ArtifactLocalDir, fc.Artifacts.LocalDir)
	setBool(&c.RunLogEnabled, fc.RunLog.Enabled)
	setString(&c.RunLogBucket, fc.RunLog.Bucket)
	setString(&c.RunLogPrefix, fc.RunLog.Prefix)
	setBool(&c.MirrorEnabled, fc.Mirror.Enabled)
	setString(&c.MirrorBucket, fc.Mirror.Bucket)
	return nil
}

// DownloadTimeout returns the download timeout as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
