// Package config resolves the warehouse builder's connection credentials
// and runtime tunables from environment variables, CLI flags, and a
// default-filled Config value, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/0lnetwork/graphwarehouse/internal/metrics"
)

const (
	envDBURI      = "LIBRA_GRAPH_DB_URI"
	envDBUser     = "LIBRA_GRAPH_DB_USER"
	envDBPassword = "LIBRA_GRAPH_DB_PASS"
)

// Credentials is the resolved graph store connection target.
type Credentials struct {
	URI      string
	Username string
	Password string
}

// ResolveCredentials reads LIBRA_GRAPH_DB_URI/_USER/_PASS from the
// environment first, falling back to the CLI flag values given. A missing
// URI is fatal since the process cannot run without a graph store.
func ResolveCredentials(flagURI, flagUser, flagPassword string) (Credentials, error) {
	c := Credentials{
		URI:      firstNonEmpty(os.Getenv(envDBURI), flagURI),
		Username: firstNonEmpty(os.Getenv(envDBUser), flagUser),
		Password: firstNonEmpty(os.Getenv(envDBPassword), flagPassword),
	}
	if c.URI == "" {
		return Credentials{}, fmt.Errorf("config: no graph store uri: set %s or pass --db-uri", envDBURI)
	}
	return c, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Config holds every runtime tunable the CLI exposes, filled in by flags
// and environment variables and completed by ApplyDefaults.
type Config struct {
	Credentials Credentials

	BatchSize   int
	Threads     int
	ParseLimit  int
	InsertLimit int
	IncludeMiner bool
	ClearQueue  bool

	Logging LoggingConfig
	Metrics metrics.Config
}

// LoggingConfig controls the process-wide zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ApplyDefaults fills in every zero-valued tunable with the value the
// warehouse uses absent an operator override.
func (c *Config) ApplyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.ParseLimit <= 0 {
		c.ParseLimit = c.Threads
	}
	if c.InsertLimit <= 0 {
		c.InsertLimit = c.Threads
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Metrics.ApplyDefaults()
}
