// Package config loads and validates the site configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Collection describes one named content collection.
type Collection struct {
	Path   string `json:"path"`
	Output string `json:"output"`
}

// Config represents the site configuration.
type Config struct {
	PagesDir     string `json:"pages_dir"`
	TemplatesDir string `json:"templates_dir"`
	StaticDir    string `json:"static_dir"`
	AssetsDir    string `json:"assets_dir"`
	OutputDir    string `json:"output_dir"`
	BaseURL      string `json:"base_url"`

	DataDir     string                `json:"data_dir,omitempty"`
	PluginsDir  string                `json:"plugins_dir,omitempty"`
	Collections map[string]Collection `json:"collections,omitempty"`

	UseAbsoluteURLs   bool `json:"use_absolute_urls,omitempty"`
	UseAbsoluteStatic bool `json:"use_absolute_static,omitempty"`

	SiteTitle       string `json:"site_title,omitempty"`
	SiteDescription string `json:"site_description,omitempty"`

	// HistoryDB is an optional path to a SQLite database recording one row
	// per build. Empty disables build history.
	HistoryDB string `json:"history_db,omitempty"`

	// DeployRemote and DeployBranch enable the built-in git deploy step.
	DeployRemote string `json:"deploy_remote,omitempty"`
	DeployBranch string `json:"deploy_branch,omitempty"`

	// RebuildIntervalSeconds, when >0, schedules periodic rebuilds in serve
	// mode in addition to the filesystem watcher.
	RebuildIntervalSeconds int `json:"rebuild_interval,omitempty"`
}

// RebuildInterval returns the periodic rebuild interval, or zero when disabled.
func (c *Config) RebuildInterval() time.Duration {
	if c.RebuildIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RebuildIntervalSeconds) * time.Second
}

// Load reads configuration from the specified JSON file.
//
// A missing or malformed configuration file is the only fatal error in the
// whole pipeline; everything downstream degrades per item.
func Load(configPath string) (*Config, error) {
	// Load .env if present so ${VAR} references in the config resolve.
	// Missing .env files are fine.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"pages_dir":     c.PagesDir,
		"templates_dir": c.TemplatesDir,
		"static_dir":    c.StaticDir,
		"assets_dir":    c.AssetsDir,
		"output_dir":    c.OutputDir,
		"base_url":      c.BaseURL,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("config is missing required key %q", key)
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = "My Static Site"
	}
	if cfg.SiteDescription == "" {
		cfg.SiteDescription = "A static site generated with sitegen."
	}
	for name, coll := range cfg.Collections {
		if coll.Output == "" {
			coll.Output = name
			cfg.Collections[name] = coll
		}
	}
}
