// Package config reads process configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Config is the process-level configuration.
type Config struct {
	DatabaseURL string // Relational store DSN
	LensID      string // LENS_ID environment selection
	LensRoot    string // Directory holding lens YAML files
	DefaultLens string // Application-level default lens id
	DataRoot    string // Root for raw payload files

	// Optional object-store mirror for raw payloads.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load reads configuration from the environment with defaults.
func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LensID:      getEnv("LENS_ID", ""),
		LensRoot:    getEnv("LENS_ROOT", "lenses"),
		DefaultLens: getEnv("DEFAULT_LENS", ""),
		DataRoot:    getEnv("INGEST_DATA_ROOT", "data"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "raw-ingestions"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}
}

// getEnv reads an environment variable with a default.
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvBool reads a boolean environment variable with a default.
func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return parsed
}
