// Package config provides configuration loading and structs for the chartdex
// server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the indices, the tier database, and the data
// dump directory.
type StorageConfig struct {
	LevelIndexPath string `yaml:"level_index_path"`
	PassIndexPath  string `yaml:"pass_index_path"`
	DatabasePath   string `yaml:"database_path"`
	DataDir        string `yaml:"data_dir"`
}

// SearchConfig holds retrieval tuning.
type SearchConfig struct {
	MaxResultWindow int `yaml:"max_result_window"`
	ScrollPageSize  int `yaml:"scroll_page_size"`
	MaxScrollPages  int `yaml:"max_scroll_pages"`
	DefaultLimit    int `yaml:"default_limit"`
}

// WatchConfig holds the data dump watch settings.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.LevelIndexPath = expandPath(cfg.Storage.LevelIndexPath, configDir)
	cfg.Storage.PassIndexPath = expandPath(cfg.Storage.PassIndexPath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
