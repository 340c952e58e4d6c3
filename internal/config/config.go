package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for reviewd.
type Config struct {
	CatalogPath    string       `mapstructure:"catalog_path"`
	ModelsDir      string       `mapstructure:"models_dir"`
	CacheEnabled   bool         `mapstructure:"cache_enabled"`
	CacheDir       string       `mapstructure:"cache_dir"`
	CacheTTL       string       `mapstructure:"cache_ttl"`
	RequestTimeout string       `mapstructure:"request_timeout"`
	RateLimit      float64      `mapstructure:"rate_limit"`
	NativeLanguage string       `mapstructure:"native_language"`
	PromptFile     string       `mapstructure:"prompt_file"`
	SecretsPath    string       `mapstructure:"secrets_path"`
	LogLevel       string       `mapstructure:"log_level"`
	Server         ServerConfig `mapstructure:"server"`
	GitHub         GitHubConfig `mapstructure:"github"`
	OpenAI         KeyConfig    `mapstructure:"openai"`
	Proxy          ProxyConfig  `mapstructure:"proxy"`
	Ollama         OllamaConfig `mapstructure:"ollama"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	AuthToken    string `mapstructure:"auth_token"`
	MaxCodeBytes int    `mapstructure:"max_code_bytes"`
}

// GitHubConfig holds GitHub-related settings.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Owner      string `mapstructure:"owner"`
	Repo       string `mapstructure:"repo"`
	BaseBranch string `mapstructure:"base_branch"`
}

// KeyConfig holds an API key for a single provider.
type KeyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ProxyConfig holds settings for proxy-routed models.
type ProxyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// OllamaConfig holds settings for the local model runtime.
type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("catalog_path", defaultDataPath("models.json"))
	v.SetDefault("models_dir", defaultDataPath("models"))
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("request_timeout", "2m")
	v.SetDefault("rate_limit", 2.0)
	v.SetDefault("native_language", "Russian")
	v.SetDefault("secrets_path", defaultDataPath("secrets.json"))
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_code_bytes", 262144)
	v.SetDefault("github.base_branch", "main")
	v.SetDefault("ollama.url", "http://127.0.0.1:11434")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/reviewd")
	}

	// Environment variables
	v.SetEnvPrefix("REVIEWD")
	v.AutomaticEnv()

	// Bind specific env vars
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("proxy.api_key", "PROXY_API_KEY")
	_ = v.BindEnv("ollama.url", "OLLAMA_HOST")
	_ = v.BindEnv("native_language", "REVIEWD_NATIVE_LANGUAGE")
	_ = v.BindEnv("server.auth_token", "REVIEWD_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if !filepath.IsAbs(cfg.CatalogPath) {
		abs, err := filepath.Abs(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("resolving catalog path: %w", err)
		}
		cfg.CatalogPath = abs
	}

	return &cfg, nil
}

// CacheTTLDuration parses the cache TTL, falling back to one hour on a
// bad value.
func (c *Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RequestTimeoutDuration parses the request timeout, falling back to
// two minutes on a bad value.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp/reviewd", name)
	}
	return filepath.Join(home, ".local", "share", "reviewd", name)
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/reviewd-cache"
	}
	return filepath.Join(home, ".cache", "reviewd")
}
