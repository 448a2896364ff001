package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	yaml "go.yaml.in/yaml/v2"
)

// Config is the file-backed configuration for auralis-live. Flags override
// anything set here.
type Config struct {
	BaseURL  string `yaml:"base_url" json:"base_url"`
	APIKey   string `yaml:"api_key" json:"api_key"`
	Model    string `yaml:"model" json:"model"`
	Language string `yaml:"language" json:"language"`

	Encoding   string `yaml:"encoding" json:"encoding"`
	SampleRate int    `yaml:"sample_rate" json:"sample_rate"`
	Channels   int    `yaml:"channels" json:"channels"`

	InterimResults bool `yaml:"interim_results" json:"interim_results"`
	Punctuate      bool `yaml:"punctuate" json:"punctuate"`
	SmartFormat    bool `yaml:"smart_format" json:"smart_format"`

	KeepAlive           bool `yaml:"keep_alive" json:"keep_alive"`
	KeepAliveIntervalMS int  `yaml:"keep_alive_interval_ms" json:"keep_alive_interval_ms"`
	FinishTimeoutMS     int  `yaml:"finish_timeout_ms" json:"finish_timeout_ms"`

	ChunkBytes      int    `yaml:"chunk_bytes" json:"chunk_bytes"`
	ChunkIntervalMS int    `yaml:"chunk_interval_ms" json:"chunk_interval_ms"`
	MetricsAddr     string `yaml:"metrics_addr" json:"metrics_addr"`
	Debug           bool   `yaml:"debug" json:"debug"`
}

// DefaultConfig returns the defaults for a 16kHz mono PCM stream.
func DefaultConfig() *Config {
	return &Config{
		Model:           "auralis-general",
		Language:        "en",
		Encoding:        "linear16",
		SampleRate:      16000,
		Channels:        1,
		InterimResults:  true,
		Punctuate:       true,
		ChunkBytes:      3200,
		ChunkIntervalMS: 100,
	}
}

// LoadConfig loads configuration from a YAML or JSON file. If path is
// empty, it attempts to read AURALIS_CONFIG; if still empty, defaults are
// returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AURALIS_CONFIG")
	}
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	ext := filepath.Ext(path)
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
		return cfg, nil
	}
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err == nil {
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err == nil {
		return cfg, nil
	}

	return nil, fmt.Errorf("unsupported config format: %s", ext)
}
