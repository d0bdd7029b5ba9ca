package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Setenv("SLIDEPACK_PORT", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Default config should load: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Expected default port 3000, got %s", cfg.Port)
	}
	if cfg.BaseURL != "http://localhost:3000" {
		t.Errorf("Expected derived base url, got %s", cfg.BaseURL)
	}
	if cfg.Concurrency != 20 || cfg.FetchAttempts != 3 {
		t.Errorf("Unexpected fetch defaults: %d %d", cfg.Concurrency, cfg.FetchAttempts)
	}
	if cfg.LedgerPath() != filepath.Join("./data", "ledger.db") {
		t.Errorf("Unexpected ledger path %s", cfg.LedgerPath())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SLIDEPACK_PORT", "8099")
	t.Setenv("SLIDEPACK_BASE_URL", "https://slides.example.com/")
	t.Setenv("SLIDEPACK_RETENTION", "90s")
	t.Setenv("SLIDEPACK_CONCURRENCY", "4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != "8099" {
		t.Errorf("Expected port 8099, got %s", cfg.Port)
	}
	if cfg.BaseURL != "https://slides.example.com" {
		t.Errorf("Trailing slash should be trimmed, got %s", cfg.BaseURL)
	}
	if cfg.Retention.Duration != 90*time.Second {
		t.Errorf("Expected 90s retention, got %v", cfg.Retention)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.Concurrency)
	}
}

func TestTOMLFileAndMirrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slidepack.toml")
	content := `
port = "4000"
downloads_dir = "/srv/downloads"
retention = "2m"

[[mirror]]
name = "archive"
type = "s3"
folder = "decks"
[mirror.settings]
bucket = "slides"
region = "eu-west-1"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != "4000" || cfg.DownloadsDir != "/srv/downloads" {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.Retention.Duration != 2*time.Minute {
		t.Errorf("Expected 2m retention, got %v", cfg.Retention)
	}
	if len(cfg.Mirrors) != 1 || cfg.Mirrors[0].Settings["bucket"] != "slides" {
		t.Errorf("Mirror not parsed: %+v", cfg.Mirrors)
	}
}

func TestMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err != nil {
		t.Errorf("Missing config file should fall back to defaults: %v", err)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Port = "abc"
	cfg.Concurrency = 0
	cfg.Mirrors = []Mirror{{Type: "ftp"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"port", "concurrency", "unknown type"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in %q", want, msg)
		}
	}
}
