package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9090"
db:
  path: /tmp/test.db
jwt:
  secret: file-secret-at-least-16-chars
github:
  template_repo: https://github.com/acme/challenge-template
  api_base: http://localhost:9999
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, "9090")
	}
	if cfg.DB.Path != "/tmp/test.db" {
		t.Errorf("DB.Path = %q, want %q", cfg.DB.Path, "/tmp/test.db")
	}
	if cfg.JWT.Secret != "file-secret-at-least-16-chars" {
		t.Errorf("JWT.Secret = %q", cfg.JWT.Secret)
	}
	if cfg.GitHub.TemplateRepo != "https://github.com/acme/challenge-template" {
		t.Errorf("TemplateRepo = %q", cfg.GitHub.TemplateRepo)
	}
	if cfg.GitHub.APIBase != "http://localhost:9999" {
		t.Errorf("APIBase = %q", cfg.GitHub.APIBase)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9090"
github:
  template_repo: https://github.com/acme/challenge-template
`)

	t.Setenv("PORT", "7070")
	t.Setenv("TEMPLATE_REPO", "https://github.com/acme/other-template")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Port = %q, want env override %q", cfg.Server.Port, "7070")
	}
	if cfg.GitHub.TemplateRepo != "https://github.com/acme/other-template" {
		t.Errorf("TemplateRepo = %q, want env override", cfg.GitHub.TemplateRepo)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("TEMPLATE_REPO", "https://github.com/acme/challenge-template")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Defaults fill in what neither file nor env set
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want default %q", cfg.Server.Port, "8080")
	}
	if cfg.DB.Path != "data/challenge.db" {
		t.Errorf("DB.Path = %q, want default", cfg.DB.Path)
	}
}

func TestLoad_MissingTemplateRepo(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "9090"
`)
	t.Setenv("TEMPLATE_REPO", "") // empty counts as unset

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail without a template repo")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not: valid")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}
