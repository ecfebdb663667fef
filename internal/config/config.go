// Package config loads the engine's environment-variable configuration,
// trimmed to the concerns this engine actually has.
package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	TorrentDataDir string
	LogLevel       string
	LogFormat      string
	MongoURI       string // empty disables the Mongo-backed watch-history store
	MongoDatabase  string
	OTELEndpoint   string
	IdleMaxAge     time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", "127.0.0.1:8888"),
		TorrentDataDir: getEnv("TORRENT_DATA_DIR", "downloads"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MongoURI:       getEnv("MONGO_URI", ""),
		MongoDatabase:  getEnv("MONGO_DB", "torrentstream"),
		OTELEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		IdleMaxAge:     getEnvDuration("TORRENT_IDLE_MAX_AGE", 72*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
