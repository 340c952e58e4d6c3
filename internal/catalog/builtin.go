package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
)

// builtinDescriptors is the static provider table. Persisted entries
// override these on id collision.
func builtinDescriptors() []Descriptor {
	return []Descriptor{
		{
			ID:          "gpt-4o",
			DisplayName: "GPT-4o",
			Type:        TypeRemoteAPI,
			Description: "OpenAI's most capable model, best for complex code analysis",
			Config: ProviderConfig{
				Provider: "openai",
				BaseURL:  "https://api.openai.com/v1",
			},
		},
		{
			ID:          "gpt-4o-mini",
			DisplayName: "GPT-4o Mini",
			Type:        TypeRemoteAPI,
			Description: "Smaller, faster GPT-4o variant",
			Config: ProviderConfig{
				Provider: "openai",
				BaseURL:  "https://api.openai.com/v1",
			},
		},
		{
			ID:          "gpt-4o-proxy",
			DisplayName: "GPT-4o Proxy",
			Type:        TypeProxy,
			Description: "GPT-4o through OpenAI-compatible proxy servers",
			Config: ProviderConfig{
				Provider: "proxy",
				Model:    "gpt-4o",
				BaseURL:  "https://api.sree.shop/v1",
				Endpoints: []Endpoint{
					{
						BaseURL:   "https://openrouter.ai/api/v1",
						KeyPrefix: "sk-or-",
						Headers: map[string]string{
							"HTTP-Referer": "https://reviewd.everstack.dev",
							"X-Title":      "reviewd",
						},
						ModelMap: map[string]string{
							"gpt-4o-proxy": "openai/gpt-4o",
							"deepseek-v3":  "deepseek/deepseek-v3-base:free",
						},
					},
					{
						BaseURL: "https://api.deepinfra.com/v1/openai",
						ModelMap: map[string]string{
							"gpt-4o-proxy": "meta-llama/llama-3-70b-instruct",
							"deepseek-v3":  "deepseek-ai/deepseek-v3-base",
						},
					},
				},
			},
		},
		{
			ID:          "deepseek-v3",
			DisplayName: "DeepSeek V3",
			Type:        TypeProxy,
			Description: "DeepSeek V3 via OpenRouter-compatible proxies",
			Config: ProviderConfig{
				Provider:            "proxy",
				BaseURL:             "https://api.sree.shop/v1",
				PrimaryIncompatible: true,
				Endpoints: []Endpoint{
					{
						BaseURL:   "https://openrouter.ai/api/v1",
						KeyPrefix: "sk-or-",
						ModelMap: map[string]string{
							"deepseek-v3": "deepseek/deepseek-v3-base:free",
						},
					},
					{
						BaseURL: "https://api.deepinfra.com/v1/openai",
						ModelMap: map[string]string{
							"deepseek-v3": "deepseek-ai/deepseek-v3-base",
						},
					},
				},
			},
		},
		{
			ID:          "claude-3-7",
			DisplayName: "Claude 3.7",
			Type:        TypeHostedUI,
			Description: "Claude 3.7 through a hosted chat endpoint",
			IsDefault:   true,
			Config: ProviderConfig{
				Provider: "hosted",
				BaseURL:  "https://hysts-samples-claude-3-7.hf.space",
			},
		},
		{
			ID:          "mock-model",
			DisplayName: "Mock Model",
			Type:        TypeMock,
			Description: "Deterministic output for testing without real API calls",
		},
	}
}

// localModelTable lists the known local models. Paths are relative to the
// configured models directory.
func localModelTable() []Descriptor {
	return []Descriptor{
		{
			ID:          "mistral-7b",
			DisplayName: "Mistral 7B",
			Type:        TypeLocal,
			Description: "Mistral 7B Instruct, lightweight local code analysis",
			Config: ProviderConfig{
				Path:         "mistral-7b-instruct-v0.2",
				Quantization: "q4_0",
			},
		},
		{
			ID:          "codellama-7b",
			DisplayName: "CodeLlama 7B",
			Type:        TypeLocal,
			Description: "CodeLlama 7B Instruct, code-specialized local model",
			Config: ProviderConfig{
				Path:         "codellama-7b-instruct",
				Quantization: "q4_0",
			},
		},
	}
}

// localDescriptors returns the local models whose weights exist under
// modelsDir. Missing models are excluded from the runtime catalog only;
// nothing is removed from persisted state.
func localDescriptors(modelsDir string) []Descriptor {
	if modelsDir == "" {
		return nil
	}
	var out []Descriptor
	for _, d := range localModelTable() {
		abs := d.Config.Path
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(modelsDir, abs)
		}
		if _, err := os.Stat(abs); err != nil {
			slog.Debug("local model not present, skipping", "model", d.ID, "path", abs)
			continue
		}
		d.Config.Path = abs
		out = append(out, d)
	}
	return out
}
