// Package config loads the engine's static configuration from HCL.
// Runtime toggles (kill switches) live in the settings package and are
// polled, not configured here.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Model is the decoded, validated engine configuration.
type Model struct {
	Tracker    Tracker
	Storage    Storage
	HostEvents *HostEvents
	Logging    Logging
}

// Tracker tunes the attribution core.
type Tracker struct {
	// Staleness is the record age driving eviction and new-round wipes.
	Staleness time.Duration
	// MaintenanceInterval is the period of the eviction/sweep loop.
	MaintenanceInterval time.Duration
	// MaxPathDepth bounds diagnostic path enumeration.
	MaxPathDepth int
	// RendezvousTTL bounds the sibling hand-off store.
	RendezvousTTL time.Duration
}

// Storage selects the durable prompt store. An empty RedisURL falls back
// to the in-memory store.
type Storage struct {
	RedisURL string
}

// HostEvents configures the optional subscription to the pipeline
// runtime's execution event socket. Nil means disabled.
type HostEvents struct {
	URL       string
	Namespace string
}

// Logging configures the engine logger.
type Logging struct {
	Level  string
	Format string
}

// Default returns the configuration used when no file is given.
func Default() *Model {
	return &Model{
		Tracker: Tracker{
			Staleness:           60 * time.Second,
			MaintenanceInterval: 30 * time.Second,
			MaxPathDepth:        20,
			RendezvousTTL:       120 * time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (m *Model) Validate() error {
	if m.Tracker.Staleness <= 0 {
		return errors.New("tracker staleness must be positive")
	}
	if m.Tracker.MaintenanceInterval <= 0 {
		return errors.New("tracker maintenance interval must be positive")
	}
	if m.Tracker.MaxPathDepth <= 0 {
		return errors.New("tracker max path depth must be positive")
	}
	switch m.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", m.Logging.Format)
	}
	switch m.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", m.Logging.Level)
	}
	if m.HostEvents != nil && m.HostEvents.URL == "" {
		return errors.New("host_events block requires a url")
	}
	return nil
}
