// Package config handles gstd daemon configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// searchPathsFunc is overridden in tests to avoid finding real config
// files on developer/deploy machines.
var searchPathsFunc = DefaultSearchPaths

// DefaultSearchPaths returns the config file search order. An explicit
// path (from -config) is checked first by FindConfig. Then:
// ./gstd.yaml, ~/.config/gstd/gstd.yaml, /config/gstd.yaml,
// /etc/gstd/gstd.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"gstd.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gstd", "gstd.yaml"))
	}

	paths = append(paths, "/config/gstd.yaml") // container convention
	paths = append(paths, "/etc/gstd/gstd.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise, searches searchPathsFunc() and returns the first
// that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all gstd daemon configuration.
type Config struct {
	Socket  SocketConfig  `yaml:"socket"`
	Unix    UnixConfig    `yaml:"unix"`
	HTTP    HTTPConfig    `yaml:"http"`
	Workers WorkersConfig `yaml:"workers"`
	RunDir  string        `yaml:"run_dir"`
	LogDir  string        `yaml:"log_dir"`
	LogLevel string       `yaml:"log_level"`
	Debug   DebugConfig   `yaml:"debug"`
}

// SocketConfig defines the line-protocol TCP transport (§6.2).
type SocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // bind address, "" = all interfaces
	Port    int    `yaml:"port"`
}

// UnixConfig defines the Unix-domain socket transport. One listener is
// started per N in [0, NumListeners), bound to "<BasePath>_<n>".
type UnixConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BasePath     string `yaml:"base_path"`
	NumListeners int    `yaml:"num_listeners"`
}

// HTTPConfig defines the HTTP/JSON transport (§6.3).
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// WorkersConfig bounds the per-transport worker pool. -1 means
// unbounded (one goroutine per in-flight request).
type WorkersConfig struct {
	PerTransport int `yaml:"per_transport"`
}

// DebugConfig seeds the /debug node's initial values.
type DebugConfig struct {
	Enable    bool   `yaml:"enable"`
	Color     bool   `yaml:"color"`
	Threshold string `yaml:"threshold"`
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g. ${HOME}) as a deployment
	// convenience; values can also be set directly in the file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults. Called
// automatically by Load.
func (c *Config) applyDefaults() {
	if c.Socket.Port == 0 {
		c.Socket.Port = 5000
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5001
	}
	if c.Unix.BasePath == "" {
		c.Unix.BasePath = "/tmp/gstd"
	}
	if c.Unix.NumListeners == 0 {
		c.Unix.NumListeners = 1
	}
	if c.Workers.PerTransport == 0 {
		c.Workers.PerTransport = 8
	}
	if c.RunDir == "" {
		c.RunDir = "/var/run/gstd"
	}
	if c.LogDir == "" {
		c.LogDir = "/var/log/gstd"
	}
	if c.Debug.Threshold == "" {
		c.Debug.Threshold = "*:1"
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
func (c *Config) Validate() error {
	if c.Socket.Enabled && (c.Socket.Port < 1 || c.Socket.Port > 65535) {
		return fmt.Errorf("socket.port %d out of range (1-65535)", c.Socket.Port)
	}
	if c.HTTP.Enabled && (c.HTTP.Port < 1 || c.HTTP.Port > 65535) {
		return fmt.Errorf("http.port %d out of range (1-65535)", c.HTTP.Port)
	}
	if c.Unix.Enabled && c.Unix.NumListeners < 0 {
		return fmt.Errorf("unix.num_listeners %d must be >= 0", c.Unix.NumListeners)
	}
	if c.Workers.PerTransport < -1 || c.Workers.PerTransport == 0 {
		return fmt.Errorf("workers.per_transport %d must be -1 (unbounded) or a positive count", c.Workers.PerTransport)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a configuration suitable for local development: the
// line-protocol socket and the HTTP transport enabled, Unix sockets
// off, defaults otherwise applied.
func Default() *Config {
	cfg := &Config{
		Socket: SocketConfig{Enabled: true},
		HTTP:   HTTPConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}
