// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOBucketModels() string
	GetMinIOBucketGCode() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq job queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SlicerConfig provides settings for the slicing engine backends.
type SlicerConfig interface {
	GetKiriSlicerPath() string
	GetPrusaSlicerCommand() string
	GetPrusaProfilePath() string
	GetRemoteEngineURL() string
	GetSliceStepTimeout() time.Duration
	GetSliceProcessTimeout() time.Duration
	GetEngineFallbackOrder() []string
}

// =============================================================================
// Concrete Config
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	MinIOEndpoint    string
	MinIOAccessKey   string
	MinIOSecretKey   string
	MinIOUseSSL      bool
	MinIOMaxFileSize int64
	BucketModels     string
	BucketGCode      string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	KiriSlicerPath      string
	PrusaSlicerCommand  string
	PrusaProfilePath    string
	RemoteEngineURL     string
	SliceStepTimeout    time.Duration
	SliceProcessTimeout time.Duration
	EngineFallbackOrder []string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowAll:   strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4028")),
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		MinIOEndpoint:    getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:   getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:   getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:      strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize: mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "104857600")),
		BucketModels:     getEnv("MINIO_BUCKET_MODELS", "print-models"),
		BucketGCode:      getEnv("MINIO_BUCKET_GCODE", "print-gcode"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "estimates"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),

		KiriSlicerPath:      getEnv("KIRI_SLICER_PATH", ""),
		PrusaSlicerCommand:  getEnv("PRUSA_SLICER_CMD", "xvfb-run -a flatpak run com.prusa3d.PrusaSlicer"),
		PrusaProfilePath:    getEnv("PRUSA_PROFILE_PATH", ""),
		RemoteEngineURL:     getEnv("REMOTE_ENGINE_URL", ""),
		SliceStepTimeout:    mustDuration(getEnv("SLICE_STEP_TIMEOUT", "30s")),
		SliceProcessTimeout: mustDuration(getEnv("SLICE_PROCESS_TIMEOUT", "5m")),
		EngineFallbackOrder: splitCSV(getEnv("ENGINE_FALLBACK_ORDER", "prusa_cli,kiri_cli,heuristic")),
	}

	if containsWildcard(cfg.CORSOrigins) {
		cfg.CORSAllowAll = true
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinIOBucketModels() string {
	return c.BucketModels
}
func (c *Config) GetMinIOBucketGCode() string {
	return c.BucketGCode
}
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetKiriSlicerPath() string          { return c.KiriSlicerPath }
func (c *Config) GetPrusaSlicerCommand() string      { return c.PrusaSlicerCommand }
func (c *Config) GetPrusaProfilePath() string        { return c.PrusaProfilePath }
func (c *Config) GetRemoteEngineURL() string         { return c.RemoteEngineURL }
func (c *Config) GetSliceStepTimeout() time.Duration { return c.SliceStepTimeout }
func (c *Config) GetSliceProcessTimeout() time.Duration {
	return c.SliceProcessTimeout
}
func (c *Config) GetEngineFallbackOrder() []string { return c.EngineFallbackOrder }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustInt64(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
