// Package config defines service configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/fwi/internal/domain/fwi"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory observation queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of station workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the number of remembered observation ids. 0 keeps
	// every id.
	DedupeSize int `koanf:"dedupe_size"`
	// ShardCount configures the number of shards in the station store.
	ShardCount int `koanf:"shard_count"`

	// AllowGaps accepts observations that skip calendar days.
	AllowGaps bool `koanf:"allow_gaps"`
	// Start codes for stations seen for the first time.
	StartFFMC float64 `koanf:"start_ffmc"`
	StartDMC  float64 `koanf:"start_dmc"`
	StartDC   float64 `koanf:"start_dc"`
	// RainCorrection is unified or van_wagner.
	RainCorrection string `koanf:"rain_correction"`
	// DCFloor floors the Drought Code at zero.
	DCFloor bool `koanf:"dc_floor"`

	MQTTEnabled          bool   `koanf:"mqtt_enabled"`
	MQTTBroker           string `koanf:"mqtt_broker"`
	MQTTClientID         string `koanf:"mqtt_client_id"`
	MQTTUsername         string `koanf:"mqtt_username"`
	MQTTPassword         string `koanf:"mqtt_password"`
	MQTTObservationTopic string `koanf:"mqtt_observation_topic"`
	MQTTIndicesTopic     string `koanf:"mqtt_indices_topic"`
	// MQTTPublishTimeout bounds the wait for the broker to acknowledge
	// published indices, e.g. "5s".
	MQTTPublishTimeout time.Duration `koanf:"mqtt_publish_timeout"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		DedupeSize:           100_000,
		ShardCount:           16,
		StartFFMC:            fwi.DefaultStartCodes.FFMC,
		StartDMC:             fwi.DefaultStartCodes.DMC,
		StartDC:              fwi.DefaultStartCodes.DC,
		RainCorrection:       fwi.RainCorrectionUnified.String(),
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientID:         "fwi-service",
		MQTTObservationTopic: "fwi/observations/+",
		MQTTIndicesTopic:     "fwi/indices",
		MQTTPublishTimeout:   5 * time.Second,
	}
}

// StartCodes returns the configured start-of-season codes.
func (c *Config) StartCodes() fwi.Codes {
	return fwi.Codes{FFMC: c.StartFFMC, DMC: c.StartDMC, DC: c.StartDC}
}

// RainCorrectionMode parses RainCorrection. Validate guarantees it succeeds.
func (c *Config) RainCorrectionMode() fwi.RainCorrection {
	rc, _ := fwi.ParseRainCorrection(c.RainCorrection)
	return rc
}

// Validate checks the configuration and wraps every failure in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.ShardCount < 1:
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, c.ShardCount)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.MQTTPublishTimeout <= 0:
		return fmt.Errorf("%w: mqtt_publish_timeout must be positive, got %s", ErrInvalidConfig, c.MQTTPublishTimeout)
	}
	if err := c.StartCodes().Validate(); err != nil {
		return fmt.Errorf("%w: start codes: %w", ErrInvalidConfig, err)
	}
	if _, ok := fwi.ParseRainCorrection(c.RainCorrection); !ok {
		return fmt.Errorf("%w: unknown rain_correction %q", ErrInvalidConfig, c.RainCorrection)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.MQTTEnabled {
		if c.MQTTBroker == "" {
			return fmt.Errorf("%w: mqtt_broker is required when mqtt is enabled", ErrInvalidConfig)
		}
		if c.MQTTObservationTopic == "" && c.MQTTIndicesTopic == "" {
			return fmt.Errorf("%w: mqtt needs an observation or indices topic", ErrInvalidConfig)
		}
	}
	return nil
}
