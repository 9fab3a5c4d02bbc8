// Package config defines service configuration and how it is loaded.
package config

import (
	"context"
	"runtime"

	"github.com/okian/penaltyhub/internal/domain/model"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the participant update queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of update workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many update ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// Store selects the backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used by the sqlite store.
	SQLitePath string `koanf:"sqlite_path"`

	// RulesFile is an optional TOML rule catalogue loaded at startup.
	RulesFile string `koanf:"rules_file"`

	// DefaultAllocation is used for matches created without one.
	DefaultAllocation string `koanf:"default_allocation"`

	// OwnerID stamps rules, matches and transactions created by this instance.
	OwnerID string `koanf:"owner_id"`
}

// New returns a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         10_000,
		WorkerCount:       runtime.NumCPU() * 2,
		DedupeSize:        50_000,
		Store:             StoreMemory,
		SQLitePath:        "penaltyhub.sqlite",
		DefaultAllocation: string(model.AllocationSplit),
		OwnerID:           "penaltyhub",
	}
}
