package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
api:
  timeout: 10s
  page_size: 50
  min_delay: 500ms
  max_retries: 0
storage:
  driver: postgres
  database_url: postgres://localhost/mcf
embedding:
  provider: openai
  dimensions: 384
crawl:
  batch_size: 20
  schedule: "0 */4 * * *"
  categories:
    - Information Technology
lock:
  redis_url: redis://localhost:6379/0
  ttl: 30m
default_user_id: alice
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Timeout != 10*time.Second || cfg.API.PageSize != 50 || cfg.API.MinDelay != 500*time.Millisecond {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.API.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want explicit 0", cfg.API.MaxRetries)
	}
	if cfg.API.BaseURL != defaultAPIBaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.API.BaseURL)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DatabaseURL != "postgres://localhost/mcf" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Model != defaultEmbedModel || cfg.Embedding.Dimensions != 384 {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
	if cfg.Crawl.BatchSize != 20 || cfg.Crawl.Schedule != "0 */4 * * *" || len(cfg.Crawl.Categories) != 1 {
		t.Errorf("Crawl = %+v", cfg.Crawl)
	}
	if cfg.Lock.TTL != 30*time.Minute || cfg.Lock.Key != defaultLockKey {
		t.Errorf("Lock = %+v", cfg.Lock)
	}
	if cfg.DefaultUserID != "alice" {
		t.Errorf("DefaultUserID = %q", cfg.DefaultUserID)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q, want log", cfg.Notification.Type)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.API != def.API || cfg.Storage != def.Storage || cfg.Crawl.BatchSize != 50 {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.DefaultUserID != "default_user" {
		t.Errorf("DefaultUserID = %q", cfg.DefaultUserID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "api: [broken")); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("MCFRADAR_TEST_KEY", "sk-test")
	t.Setenv("MCFRADAR_TEST_HOOK", "https://hooks.slack.com/services/T/B/X")
	path := writeConfig(t, `
ai:
  enabled: true
  model: gpt-4o-mini
  api_key: ${MCFRADAR_TEST_KEY}
notification:
  type: slack
  webhook_url: ${MCFRADAR_TEST_HOOK}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Errorf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.Notification.WebhookURL != "https://hooks.slack.com/services/T/B/X" {
		t.Errorf("WebhookURL = %q", cfg.Notification.WebhookURL)
	}
}

func TestLoad_GeminiKeepsProviderDefaultModel(t *testing.T) {
	cfg, err := Load(writeConfig(t, "embedding:\n  provider: Gemini\n  api_key: k\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Provider != "gemini" || cfg.Embedding.Model != "" {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad duration", "api:\n  timeout: soon\n", "api.timeout"},
		{"page size too big", "api:\n  page_size: 101\n", "api.page_size"},
		{"negative retries", "api:\n  max_retries: -1\n", "api.max_retries"},
		{"unknown driver", "storage:\n  driver: mysql\n", "storage.driver"},
		{"postgres without url", "storage:\n  driver: postgres\n", "storage.database_url"},
		{"unknown embedder", "embedding:\n  provider: cohere\n", "embedding.provider"},
		{"gemini without key", "embedding:\n  provider: gemini\n", "embedding.api_key"},
		{"ai without key", "ai:\n  enabled: true\n  model: m\n", "ai.api_key"},
		{"ai without model", "ai:\n  enabled: true\n  api_key: k\n", "ai.model"},
		{"negative batch", "crawl:\n  batch_size: -5\n", "crawl.batch_size"},
		{"bad lock ttl", "lock:\n  redis_url: redis://x\n  ttl: 0s\n", "lock.ttl"},
		{"slack without webhook", "notification:\n  type: slack\n", "webhook_url is required"},
		{"slack bad webhook", "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", "hooks.slack.com"},
		{"unknown notifier", "notification:\n  type: email\n", "notification.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if p, explicit := Resolve(""); p != DefaultPath || explicit {
		t.Errorf("Resolve() = %q, %v", p, explicit)
	}

	t.Setenv(EnvConfigPath, "/etc/mcf.yaml")
	if p, explicit := Resolve(""); p != "/etc/mcf.yaml" || !explicit {
		t.Errorf("env Resolve() = %q, %v", p, explicit)
	}
	if p, explicit := Resolve("flag.yaml"); p != "flag.yaml" || !explicit {
		t.Errorf("flag Resolve() = %q, %v", p, explicit)
	}
}

func TestLoadResolved_MissingFallbackUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Chdir(t.TempDir())

	cfg, path, err := LoadResolved("")
	if err != nil {
		t.Fatalf("LoadResolved: %v", err)
	}
	if path != "" || cfg.Storage.Driver != "sqlite" {
		t.Errorf("path = %q, cfg = %+v", path, cfg.Storage)
	}
}

func TestLoadResolved_MissingExplicitFails(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, _, err := LoadResolved(""); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}
