package app

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	suggestsvc "github.com/m3rciful/shopbot/service/suggest"
)

// SecretsConfig carries the key material for the token codec.
type SecretsConfig struct {
	Key string `yaml:"key" envconfig:"TOKEN_CIPHER_KEY"`
	IV  string `yaml:"iv" envconfig:"TOKEN_CIPHER_IV"`
}

// Config aggregates everything the shop manager needs to run. The core
// section configures the operator bot itself; storefront bots share its
// long-poll settings.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Secrets  SecretsConfig       `yaml:"secrets"`
	Suggest  suggestsvc.Config   `yaml:"suggest"`
}

// CoreConfig exposes the embedded core configuration for the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Core }

// LoadConfig reads YAML configuration and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if cfg.Secrets.Key == "" || cfg.Secrets.IV == "" {
		return nil, fmt.Errorf("secrets.key and secrets.iv are required")
	}
	return &cfg, nil
}
