// Package config defines process configuration and its loading order.
//
// Defaults are layered under an optional YAML file (PUNCHTRUST_CONFIG) and
// PUNCHTRUST_-prefixed environment variables. Risk weights, level thresholds
// and shift boundaries are deliberately configuration rather than constants so
// operators can retune trust sensitivity without a code change.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Timezone is the IANA business timezone used to resolve "today" for
	// attendance records, e.g. "Asia/Jakarta". Defaults to UTC.
	Timezone string `koanf:"timezone"`

	// DatabaseURL enables the PostgreSQL-backed stores when set. Empty means
	// in-memory stores (development and tests).
	DatabaseURL string `koanf:"database_url"`

	// Redis configures the optional Redis-backed punch lock.
	Redis RedisConfig `koanf:"redis"`

	// Kafka configures the optional audit trail sink.
	Kafka KafkaConfig `koanf:"kafka"`

	// Shift configures day-status derivation.
	Shift ShiftConfig `koanf:"shift"`

	// Trust configures risk scoring weights and level thresholds.
	Trust TrustConfig `koanf:"trust"`

	// HeldListLimit caps GET /attendance/held-events?limit.
	HeldListLimit int `koanf:"held_list_limit"`
}

// RedisConfig carries connection settings for the shared Redis client.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// KafkaConfig carries audit sink settings. An empty broker list disables the
// Kafka sink; audit events still go to the structured log.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// ShiftConfig drives attendance status derivation.
type ShiftConfig struct {
	// Start is the shift start in "HH:MM" 24h form, local to Timezone.
	Start string `koanf:"start"`

	// GraceMinutes after Start within which a clock-in still counts as present.
	GraceMinutes int `koanf:"grace_minutes"`

	// FullDayMinutes is the worked-minutes threshold below which a completed
	// day counts as half-day.
	FullDayMinutes int `koanf:"full_day_minutes"`
}

// TrustConfig holds risk scoring weights and the level boundaries.
// Each weight is the score contribution when its indicator is suspicious;
// missing or malformed signal fields contribute the full weight (fail closed).
type TrustConfig struct {
	WeightUnknownDevice   float64 `koanf:"weight_unknown_device"`
	WeightNewDevice       float64 `koanf:"weight_new_device"`
	WeightBotAgent        float64 `koanf:"weight_bot_agent"`
	WeightBadIP           float64 `koanf:"weight_bad_ip"`
	WeightLocationDrift   float64 `koanf:"weight_location_drift"`
	WeightDistancePerKM   float64 `koanf:"weight_distance_per_km"`
	DistanceCapKM         float64 `koanf:"distance_cap_km"`
	WeightUnusualHours    float64 `koanf:"weight_unusual_hours"`
	MediumThreshold       float64 `koanf:"medium_threshold"`
	HighThreshold         float64 `koanf:"high_threshold"`
}

// Default returns the baseline configuration before file/env overrides.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		LogLevel: "info",
		Timezone: "UTC",
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "attendance.audit",
		},
		Shift: ShiftConfig{
			Start:          "09:00",
			GraceMinutes:   10,
			FullDayMinutes: 480,
		},
		Trust: TrustConfig{
			WeightUnknownDevice: 4,
			WeightNewDevice:     2,
			WeightBotAgent:      4,
			WeightBadIP:         3,
			WeightLocationDrift: 3,
			WeightDistancePerKM: 0.1,
			DistanceCapKM:       50,
			WeightUnusualHours:  2,
			MediumThreshold:     3,
			HighThreshold:       7,
		},
		HeldListLimit: 100,
	}
}

// Location resolves the configured business timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
