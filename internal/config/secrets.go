package config

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
)

// secretsFile is the lazily loaded secrets.json contents, a flat map of
// key name to value.
type secretsFile struct {
	once   sync.Once
	path   string
	values map[string]string
}

func (s *secretsFile) get(key string) string {
	s.once.Do(func() {
		s.values = map[string]string{}
		data, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		_ = json.Unmarshal(data, &s.values)
	})
	return s.values[key]
}

// Credentials resolves API keys for providers. Lookup order is the
// provider environment variable, then the config file, then
// secrets.json, then the generic API_KEY entry.
type Credentials struct {
	cfg     *Config
	secrets *secretsFile
}

// NewCredentials builds a resolver over cfg and its secrets file.
func NewCredentials(cfg *Config) *Credentials {
	return &Credentials{
		cfg:     cfg,
		secrets: &secretsFile{path: cfg.SecretsPath},
	}
}

// Key returns the API key for provider, or "" when none is configured.
func (c *Credentials) Key(provider string) string {
	envKey := strings.ToUpper(provider) + "_API_KEY"
	if v := os.Getenv(envKey); v != "" {
		return v
	}

	switch provider {
	case "openai":
		if c.cfg.OpenAI.APIKey != "" {
			return c.cfg.OpenAI.APIKey
		}
	case "proxy":
		if c.cfg.Proxy.APIKey != "" {
			return c.cfg.Proxy.APIKey
		}
	}

	if v := c.secrets.get(envKey); v != "" {
		return v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		return v
	}
	return c.secrets.get("API_KEY")
}
