package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// APIConfig holds the GitHub API client settings
type APIConfig struct {
	BaseURL                    string `toml:"BaseURL"`
	UserAgent                  string `toml:"UserAgent"`
	RequestTimeoutInSeconds    uint32 `toml:"RequestTimeoutInSeconds"`
	MaxRetries                 uint32 `toml:"MaxRetries"`
	MinRequestIntervalInMillis uint32 `toml:"MinRequestIntervalInMillis"`
	RateLimitThreshold         uint32 `toml:"RateLimitThreshold"`
}

// CollectionConfig holds the collection run settings
type CollectionConfig struct {
	NumWorkers uint32 `toml:"NumWorkers"`
}

// ServerConfig holds the dashboard API server settings
type ServerConfig struct {
	ListenAddress string `toml:"ListenAddress"`
}

// Config maps to the config.toml file of the tracker
type Config struct {
	DataDir    string           `toml:"DataDir"`
	API        APIConfig        `toml:"API"`
	Collection CollectionConfig `toml:"Collection"`
	Server     ServerConfig     `toml:"Server"`
}

// LoadConfig parses a TOML file into the Config struct
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &cfg, nil
}
