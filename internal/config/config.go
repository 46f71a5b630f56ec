// Package config loads application settings from a YAML file with
// environment variable overrides. The file is the baseline; any env var
// that is set wins over the file, which keeps container deployments simple
// (mount a config file, override the secrets).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application settings.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	JWT    JWTConfig    `yaml:"jwt"`
	GitHub GitHubConfig `yaml:"github"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// JWTConfig holds token settings. An empty secret disables authentication
// (the server logs a warning and leaves protected routes open — fine for
// local development, never for production).
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// GitHubConfig holds the challenge-template settings.
type GitHubConfig struct {
	// TemplateRepo is the template every new user's challenge repository
	// is generated from, e.g. "https://github.com/acme/challenge-template".
	TemplateRepo string `yaml:"template_repo"`
	// APIBase overrides the GitHub REST endpoint. Empty means the public
	// API; tests point it at a local fake.
	APIBase string `yaml:"api_base"`
}

// Load reads the configuration from a YAML file, then applies environment
// overrides. A missing file is not an error — everything can come from the
// environment.
func Load(filename string) (*Config, error) {
	var cfg Config

	if data, err := os.ReadFile(filename); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", filename, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading %s: %w", filename, err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("TEMPLATE_REPO"); v != "" {
		cfg.GitHub.TemplateRepo = v
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		cfg.GitHub.APIBase = v
	}

	// --- DEFAULTS ---
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.DB.Path == "" {
		cfg.DB.Path = "data/challenge.db"
	}

	// The template repo has no sensible default — without it the server
	// cannot provision anything on registration.
	if cfg.GitHub.TemplateRepo == "" {
		return nil, fmt.Errorf("config: github.template_repo (or TEMPLATE_REPO) is required")
	}

	return &cfg, nil
}
