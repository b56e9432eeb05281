package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	_ = os.Unsetenv(key)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	unsetenv(t, "DISCORD_TOKEN")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing token error")
	}
	if _, err := LoadDashboard(); err != nil {
		t.Fatalf("dashboard config should not require a token: %v", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
discord_token: file-token
database_path: /tmp/file.db
transcripts:
  workers: 3
  retention_days: 90
dashboard:
  public_url: https://logs.example.com/
  max_page_size: 50
`)
	t.Setenv("CONFIG_PATH", path)
	unsetenv(t, "DISCORD_TOKEN")
	t.Setenv("DATABASE_PATH", "/tmp/env.db")
	unsetenv(t, "TRANSCRIPTS_WORKERS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "file-token" {
		t.Fatalf("expected token from file, got %q", cfg.DiscordToken)
	}
	if cfg.DatabasePath != "/tmp/env.db" {
		t.Fatalf("expected env database path, got %q", cfg.DatabasePath)
	}
	if cfg.Transcripts.Workers != 3 || cfg.Transcripts.RetentionDays != 90 {
		t.Fatalf("unexpected transcript config: %+v", cfg.Transcripts)
	}
	if cfg.Dashboard.PublicURL != "https://logs.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Dashboard.PublicURL)
	}
	if cfg.Dashboard.DefaultPageSize != 20 {
		t.Fatalf("expected default page size 20, got %d", cfg.Dashboard.DefaultPageSize)
	}
	if !cfg.MessageCache.Enabled {
		t.Fatalf("expected message cache enabled by default")
	}
}

func TestNormalizeClampsPageSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dashboard.MaxPageSize = 10
	cfg.Dashboard.DefaultPageSize = 50
	cfg.Transcripts.Workers = 0
	normalize(&cfg)

	if cfg.Dashboard.DefaultPageSize != 10 {
		t.Fatalf("expected default page size clamped to 10, got %d", cfg.Dashboard.DefaultPageSize)
	}
	if cfg.Transcripts.Workers != 8 {
		t.Fatalf("expected default worker count, got %d", cfg.Transcripts.Workers)
	}
}
