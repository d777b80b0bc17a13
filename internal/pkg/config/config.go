// Package config loads service configuration from the environment.
package config

import (
	"os"
	"time"
)

type Config struct {
	ServiceName string
	HTTPAddr    string

	// DBPath is the SQLite database file.
	DBPath string

	// RedisAddr enables the cart/coupon cache when non-empty.
	RedisAddr string

	// KafkaBrokers is a comma-separated broker list; empty disables
	// status-event publication.
	KafkaBrokers     string
	StatusEventTopic string

	// CacheTTL bounds staleness of cached cart totals and coupon lookups.
	CacheTTL time.Duration
}

func FromEnv() Config {
	return Config{
		ServiceName:      getEnv("SERVICE_NAME", "commerce-core"),
		HTTPAddr:         ":" + getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./data/commerce.db"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		StatusEventTopic: getEnv("STATUS_EVENT_TOPIC", "order.status"),
		CacheTTL:         getDuration("CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
