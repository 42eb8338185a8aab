// Package app loads the support bot configuration and wires storage, the
// compute collaborator and the dispatcher into a runnable Telegram app.
package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/supportbot/core/config"
	coredatabase "github.com/m3rciful/supportbot/core/database"
	"github.com/m3rciful/supportbot/internal/dialogue"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"
)

// Compute drivers.
const (
	ComputeGRPC = "grpc"
	ComputeHTTP = "http"
)

const (
	defaultComputeAddr  = "127.0.0.1:50052"
	defaultSystemPrompt = "You are a helpful assistant."
	defaultTemperature  = 0.7
	defaultTopP         = 0.9
)

// StorageConfig selects where records and users live.
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver" envconfig:"STORAGE_DRIVER"`
	// Table and Region apply to the dynamodb driver.
	Table  string `yaml:"table" toml:"table" envconfig:"DYNAMODB_TABLE"`
	Region string `yaml:"region" toml:"region" envconfig:"AWS_REGION"`
}

// ComputeConfig describes the answer service. Unset temperature and top_p
// take the defaults. A zero timeout leaves answer calls without a deadline.
type ComputeConfig struct {
	Driver         string   `yaml:"driver" toml:"driver" envconfig:"COMPUTE_DRIVER"`
	Addr           string   `yaml:"addr" toml:"addr" envconfig:"COMPUTE_ADDR"`
	Service        string   `yaml:"service" toml:"service"`
	Method         string   `yaml:"method" toml:"method"`
	SystemPrompt   string   `yaml:"system_prompt" toml:"system_prompt"`
	Temperature    *float32 `yaml:"temperature" toml:"temperature"`
	TopP           *float32 `yaml:"top_p" toml:"top_p"`
	TimeoutSeconds int      `yaml:"timeout_seconds" toml:"timeout_seconds" envconfig:"COMPUTE_TIMEOUT_SECONDS"`

	BaseURL     string `yaml:"base_url" toml:"base_url" envconfig:"COMPUTE_BASE_URL"`
	Model       string `yaml:"model" toml:"model" envconfig:"COMPUTE_MODEL"`
	APIKey      string `yaml:"api_key" toml:"api_key" envconfig:"COMPUTE_API_KEY"`
	APIKeyParam string `yaml:"api_key_param" toml:"api_key_param" envconfig:"COMPUTE_API_KEY_PARAM"`
}

// DialogueConfig tunes conversation handling.
type DialogueConfig struct {
	Concurrency string `yaml:"concurrency" toml:"concurrency" envconfig:"DIALOGUE_CONCURRENCY"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database" toml:"database"`
	Storage  StorageConfig       `yaml:"storage" toml:"storage"`
	Compute  ComputeConfig       `yaml:"compute" toml:"compute"`
	Dialogue DialogueConfig      `yaml:"dialogue" toml:"dialogue"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads path and the environment, then validates and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "", StoragePostgres:
		c.Storage.Driver = StoragePostgres
		c.Database.Normalize()
		if strings.TrimSpace(c.Database.Name) == "" {
			return fmt.Errorf("database.name is required for storage.driver %q", StoragePostgres)
		}
	case StorageDynamoDB:
		if strings.TrimSpace(c.Storage.Table) == "" {
			return fmt.Errorf("storage.table is required for storage.driver %q", StorageDynamoDB)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, dynamodb, memory", c.Storage.Driver)
	}

	if err := c.Compute.normalize(); err != nil {
		return err
	}

	mode, err := dialogue.ParseConcurrency(c.Dialogue.Concurrency)
	if err != nil {
		return fmt.Errorf("dialogue.concurrency: %w", err)
	}
	c.Dialogue.Concurrency = string(mode)
	return nil
}

func (c *ComputeConfig) normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", ComputeGRPC:
		c.Driver = ComputeGRPC
		if strings.TrimSpace(c.Addr) == "" {
			c.Addr = defaultComputeAddr
		}
	case ComputeHTTP:
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("compute.model is required for compute.driver %q", ComputeHTTP)
		}
		if strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.APIKeyParam) == "" {
			return fmt.Errorf("compute.api_key or compute.api_key_param is required for compute.driver %q", ComputeHTTP)
		}
	default:
		return fmt.Errorf("invalid compute.driver %q; allowed: grpc, http", c.Driver)
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	if c.Temperature == nil {
		c.Temperature = ptr(float32(defaultTemperature))
	}
	if c.TopP == nil {
		c.TopP = ptr(float32(defaultTopP))
	}
	if *c.Temperature < 0 {
		return fmt.Errorf("compute.temperature must not be negative, got %v", *c.Temperature)
	}
	if *c.TopP < 0 || *c.TopP > 1 {
		return fmt.Errorf("compute.top_p must be within [0, 1], got %v", *c.TopP)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("compute.timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
