// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a default that works for local
// development with the in-memory stores.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures the full runtime configuration.
type Server struct {
	Addr       string
	AdminToken string

	// DatabaseURL selects the Postgres stores when set; empty means
	// in-memory.
	DatabaseURL string

	// RedisURL enables the shared cooldown gate when set.
	RedisURL string

	// KafkaBrokers enables the Kafka notifier when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// CooldownWindow is how long a device must wait between votes on the
	// same marker.
	CooldownWindow time.Duration

	// StaleMaxAge is how long a marker may go unconfirmed before the
	// expiry sweep deactivates it.
	StaleMaxAge time.Duration

	// MonitorInterval is the requested wake cadence for the background
	// monitor; the monitor clamps it to its supported range.
	MonitorInterval time.Duration

	// MonitorRadiusMiles is the proximity search radius.
	MonitorRadiusMiles float64

	// MonitorLat and MonitorLng fix the monitored location for server
	// deployments.
	MonitorLat float64
	MonitorLng float64

	// MonitorEnabled starts the background monitor at boot.
	MonitorEnabled bool
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:               envString("DEICER_ADDR", ":8080"),
		AdminToken:         os.Getenv("DEICER_ADMIN_TOKEN"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       envList("KAFKA_BROKERS"),
		KafkaTopic:         envString("KAFKA_TOPIC", "deicer.notifications"),
		CooldownWindow:     envDuration("DEICER_COOLDOWN_WINDOW", 4*time.Hour),
		StaleMaxAge:        envDuration("DEICER_STALE_MAX_AGE", 8*time.Hour),
		MonitorInterval:    envDuration("DEICER_MONITOR_INTERVAL", 15*time.Minute),
		MonitorRadiusMiles: envFloat("DEICER_MONITOR_RADIUS_MILES", 5),
		MonitorLat:         envCoord("DEICER_MONITOR_LAT"),
		MonitorLng:         envCoord("DEICER_MONITOR_LNG"),
		MonitorEnabled:     os.Getenv("DEICER_MONITOR_ENABLED") == "true",
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// envCoord parses a coordinate component; unlike envFloat, negative values
// are legal.
func envCoord(key string) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
