package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// EnvPrefix is prepended to every environment variable, e.g. FOCUSTRACK_TRACKER_POLL_INTERVAL.
const EnvPrefix = "FOCUSTRACK"

// LoadFromEnv loads configuration from environment variables.
// Variables that are not set leave the current value untouched.
func LoadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return errors.Wrap(err, "failed to read environment")
	}
	return nil
}

// New creates a Config from defaults, the optional YAML file and the environment, in that order.
func New() (*Config, error) {
	cfg := Default()

	path := os.Getenv(EnvPrefix + "_CONFIG")
	if path == "" {
		var err error
		path, err = DefaultFilePath()
		if err != nil {
			return nil, err
		}
	}

	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
