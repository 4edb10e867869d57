// Package config loads the server configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendLevelDB Backend = "leveldb"
)

const envPrefix = "FEDACTOR_"

type Config struct {
	Listen       string        `yaml:"listen"`
	Domain       string        `yaml:"domain"`
	InstanceName string        `yaml:"instance_name"`
	Storage      StorageConfig `yaml:"storage"`
	Log          LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Backend Backend `yaml:"backend"`
	Path    string  `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:       ":8080",
		InstanceName: "fedactor",
		Storage: StorageConfig{
			Backend: BackendMemory,
			Path:    "./data",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (if not empty) over the defaults and applies
// FEDACTOR_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Listen = getEnv("LISTEN", c.Listen)
	// host names compare case-insensitively; acct: resources are lowercased
	c.Domain = strings.ToLower(strings.TrimSpace(getEnv("DOMAIN", c.Domain)))
	c.InstanceName = getEnv("INSTANCE_NAME", c.InstanceName)
	c.Storage.Backend = Backend(getEnv("STORAGE_BACKEND", string(c.Storage.Backend)))
	c.Storage.Path = getEnv("STORAGE_PATH", c.Storage.Path)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if v := os.Getenv(envPrefix + "LOG_DEVELOPMENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Development = b
		}
	}
}

func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the leveldb backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}
