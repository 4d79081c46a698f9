// Package config holds the runtime configuration of the export server.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// Config is the YAML-backed server configuration
type Config struct {
	// DeviceName is the advertised device name.
	DeviceName string `yaml:"device_name"`
	// DeviceSerial identifies this device to the ingestion endpoint.
	// Generated when left empty.
	DeviceSerial string `yaml:"device_serial"`
	// ProjectKey authorizes chunk uploads for this project.
	ProjectKey string `yaml:"project_key"`
	// ChunksURIBase is the ingestion endpoint; the device serial is
	// appended to form the data URI characteristic value.
	ChunksURIBase string `yaml:"chunks_uri_base"`
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DeviceName:    "CHUNKSTREAM_DEVICE",
		ProjectKey:    "unconfigured-project-key",
		ChunksURIBase: "https://chunks.memfault.com/api/v0/chunks",
		LogLevel:      "info",
	}
}

// Load reads a YAML configuration file over the defaults
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f, yaml.Strict())
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and fills in the device serial when
// absent.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("config: device_name must not be empty")
	}
	if c.ProjectKey == "" {
		return fmt.Errorf("config: project_key must not be empty")
	}
	if c.ChunksURIBase == "" {
		return fmt.Errorf("config: chunks_uri_base must not be empty")
	}
	if c.DeviceSerial == "" {
		c.DeviceSerial = generateSerial()
	}
	return nil
}

// ChunksURI returns the full data-URI characteristic value
func (c *Config) ChunksURI() string {
	return strings.TrimRight(c.ChunksURIBase, "/") + "/" + c.DeviceSerial
}

// Authorization returns the authorization characteristic value, a single
// HTTP-style header line.
func (c *Config) Authorization() string {
	return "Memfault-Project-Key:" + c.ProjectKey
}

func generateSerial() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "CSB-" + id[:12]
}
