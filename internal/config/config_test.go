package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.CacheEnabled {
		t.Error("cache disabled by default")
	}
	if cfg.CacheTTLDuration() != time.Hour {
		t.Errorf("cache ttl = %v, want 1h", cfg.CacheTTLDuration())
	}
	if cfg.NativeLanguage != "Russian" {
		t.Errorf("native language = %q, want Russian", cfg.NativeLanguage)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "cache_ttl: 30m\nnative_language: Spanish\nserver:\n  addr: \":9090\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheTTLDuration() != 30*time.Minute {
		t.Errorf("cache ttl = %v, want 30m", cfg.CacheTTLDuration())
	}
	if cfg.NativeLanguage != "Spanish" {
		t.Errorf("native language = %q, want Spanish", cfg.NativeLanguage)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr = %q, want :9090", cfg.Server.Addr)
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	cfg := &Config{CacheTTL: "soon", RequestTimeout: "-5s"}
	if cfg.CacheTTLDuration() != time.Hour {
		t.Errorf("cache ttl = %v, want 1h fallback", cfg.CacheTTLDuration())
	}
	if cfg.RequestTimeoutDuration() != 2*time.Minute {
		t.Errorf("request timeout = %v, want 2m fallback", cfg.RequestTimeoutDuration())
	}
}

func TestCredentialChain(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "secrets.json")
	if err := os.WriteFile(secrets, []byte(`{"OPENAI_API_KEY":"sk-from-secrets","API_KEY":"sk-generic"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PROXY_API_KEY", "")
	t.Setenv("API_KEY", "")

	cfg := &Config{SecretsPath: secrets}
	creds := NewCredentials(cfg)

	if got := creds.Key("openai"); got != "sk-from-secrets" {
		t.Errorf("openai key = %q, want secrets value", got)
	}
	if got := creds.Key("proxy"); got != "sk-generic" {
		t.Errorf("proxy key = %q, want generic API_KEY fallback", got)
	}
	if got := creds.Key("deepseek"); got != "sk-generic" {
		t.Errorf("deepseek key = %q, want generic API_KEY fallback", got)
	}

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	creds = NewCredentials(cfg)
	if got := creds.Key("openai"); got != "sk-from-env" {
		t.Errorf("openai key = %q, want env value", got)
	}

	cfg2 := &Config{SecretsPath: filepath.Join(dir, "missing.json"), Proxy: ProxyConfig{APIKey: "sk-cfg"}}
	t.Setenv("PROXY_API_KEY", "")
	creds = NewCredentials(cfg2)
	if got := creds.Key("proxy"); got != "sk-cfg" {
		t.Errorf("proxy key = %q, want config value", got)
	}
}
