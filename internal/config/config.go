// Package config loads the gateway's TOML configuration file, following
// the teacher's config package shape: a plain struct with a Validate
// method and a NewDefaultConfig/NewTestConfig pair of factories, loaded
// with github.com/BurntSushi/toml.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	units "github.com/docker/go-units"
	"github.com/ngaut/log"
)

// Config is the gateway server's full configuration.
type Config struct {
	// ListenAddr is the TCP address the server accepts connections on.
	ListenAddr string `toml:"listen_addr"`
	// DBPath is accepted for interface parity with a disk-backed engine;
	// the embedded engine in this build is in-memory only.
	DBPath string `toml:"db_path"`
	// LogLevel is passed straight to github.com/ngaut/log.
	LogLevel string `toml:"log_level"`

	// MaxPayload is the human-readable max frame payload size, e.g. "16MB",
	// parsed with github.com/docker/go-units. Empty means wire.DefaultMaxPayload.
	MaxPayload string `toml:"max_payload"`

	// Profile enables the Prometheus per-opcode latency histogram and CSV
	// aggregator (ORDO_PROFILE).
	Profile bool `toml:"profile"`
	// ProfileDir overrides the CSV aggregator's output directory; empty
	// means the profiling package's own default.
	ProfileDir string `toml:"profile_dir"`
	// TimingLogPath, if set, enables the rotating per-frame timing log
	// (LINEAIRDB_PROTOBUF_TIMING_LOG).
	TimingLogPath string `toml:"timing_log_path"`
}

// MaxPayloadBytes parses c.MaxPayload into a byte count, defaulting to 0
// (meaning "use the wire package's own default") when unset.
func (c *Config) MaxPayloadBytes() (uint32, error) {
	if c.MaxPayload == "" {
		return 0, nil
	}
	n, err := units.FromHumanSize(c.MaxPayload)
	if err != nil {
		return 0, fmt.Errorf("invalid max_payload %q: %w", c.MaxPayload, err)
	}
	if n < 0 || n > (1<<32-1) {
		return 0, fmt.Errorf("max_payload %q out of range", c.MaxPayload)
	}
	return uint32(n), nil
}

// Validate reports whether c is internally consistent enough to run the
// server with.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if _, err := c.MaxPayloadBytes(); err != nil {
		return err
	}
	return nil
}

func getLogLevel() string {
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}

// NewDefaultConfig returns the configuration a freshly installed server
// runs with.
func NewDefaultConfig() *Config {
	return &Config{
		ListenAddr: "0.0.0.0:9999",
		DBPath:     "/tmp/ordo",
		LogLevel:   getLogLevel(),
		MaxPayload: "16MB",
	}
}

// NewTestConfig returns a configuration suited to package tests: an
// ephemeral port and a quiet log level.
func NewTestConfig() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:0",
		DBPath:     "/tmp/ordo-test",
		LogLevel:   "error",
		MaxPayload: "16MB",
	}
}

// Load reads and parses a TOML file at path into a Config seeded with
// NewDefaultConfig's values, so a config file only needs to set the
// fields it wants to override.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Infof("ordo: loaded config from %s", path)
	return cfg, nil
}
