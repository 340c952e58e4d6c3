// Package remote implements the adapter for OpenAI-compatible APIs
// reached directly with a provider credential.
package remote

import (
	"context"
	"fmt"

	"github.com/everstacklabs/reviewd/internal/adapter"
	"github.com/everstacklabs/reviewd/internal/httpclient"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Keyring resolves provider credentials.
type Keyring interface {
	Key(provider string) string
}

// Adapter sends chat completion requests to a single remote endpoint.
type Adapter struct {
	model    string
	provider string
	baseURL  string
	headers  map[string]string
	keys     Keyring
	client   *httpclient.Client
	prompts  *prompt.Builder
}

// New builds a remote adapter for model served by provider at baseURL.
func New(model, provider, baseURL string, headers map[string]string, keys Keyring, client *httpclient.Client, prompts *prompt.Builder) *Adapter {
	return &Adapter{
		model:    model,
		provider: provider,
		baseURL:  baseURL,
		headers:  headers,
		keys:     keys,
		client:   client,
		prompts:  prompts,
	}
}

func (a *Adapter) Name() string {
	return "remote:" + a.model
}

func (a *Adapter) Analyze(ctx context.Context, code, language string, opts adapter.Options) (string, error) {
	key := a.keys.Key(a.provider)
	if key == "" {
		return "", adapter.NewError(adapter.KindCredentialMissing, a.baseURL,
			fmt.Errorf("no API key configured for provider %s", a.provider))
	}

	system, user := a.prompts.Build(a.provider, code, language, opts.ResponseLanguage)

	headers := map[string]string{"Authorization": "Bearer " + key}
	for k, v := range a.headers {
		headers[k] = v
	}

	req := httpclient.ChatRequest{
		Model: a.model,
		Messages: []httpclient.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature != 0 {
		t := opts.Temperature
		req.Temperature = &t
	}

	out, err := a.client.Chat(ctx, a.baseURL, headers, req)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", a.model, err)
	}
	return out, nil
}
