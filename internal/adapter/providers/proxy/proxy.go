// Package proxy implements the adapter for models reached through a
// ladder of OpenAI-compatible proxy endpoints. Endpoints are tried in
// declared order and the first non-empty completion wins.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/everstacklabs/reviewd/internal/adapter"
	"github.com/everstacklabs/reviewd/internal/catalog"
	"github.com/everstacklabs/reviewd/internal/httpclient"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Keyring resolves provider credentials.
type Keyring interface {
	Key(provider string) string
}

// candidate is one rung of the failover ladder.
type candidate struct {
	baseURL   string
	model     string
	keyPrefix string
	headers   map[string]string
}

// Adapter fans a request across proxy endpoints until one answers.
type Adapter struct {
	id         string
	candidates []candidate
	keys       Keyring
	client     *httpclient.Client
	prompts    *prompt.Builder
}

// New builds a proxy adapter for the descriptor id and its provider
// config. The primary base URL leads the ladder unless the config
// marks it incompatible with the model.
func New(id string, cfg catalog.ProviderConfig, keys Keyring, client *httpclient.Client, prompts *prompt.Builder) *Adapter {
	upstream := cfg.Model
	if upstream == "" {
		upstream = id
	}

	var cands []candidate
	if cfg.BaseURL != "" && !cfg.PrimaryIncompatible {
		cands = append(cands, candidate{
			baseURL:   cfg.BaseURL,
			model:     upstream,
			keyPrefix: cfg.KeyPrefix,
			headers:   cfg.Headers,
		})
	}
	for _, ep := range cfg.Endpoints {
		model := upstream
		if mapped, ok := ep.ModelMap[id]; ok {
			model = mapped
		}
		cands = append(cands, candidate{
			baseURL:   ep.BaseURL,
			model:     model,
			keyPrefix: ep.KeyPrefix,
			headers:   ep.Headers,
		})
	}

	return &Adapter{
		id:         id,
		candidates: cands,
		keys:       keys,
		client:     client,
		prompts:    prompts,
	}
}

func (a *Adapter) Name() string {
	return "proxy:" + a.id
}

// Candidates reports the endpoint ladder in try order.
func (a *Adapter) Candidates() []string {
	out := make([]string, len(a.candidates))
	for i, c := range a.candidates {
		out[i] = c.baseURL
	}
	return out
}

func (a *Adapter) Analyze(ctx context.Context, code, language string, opts adapter.Options) (string, error) {
	if len(a.candidates) == 0 {
		return "", adapter.NewError(adapter.KindModelUnavailable, "",
			fmt.Errorf("model %s has no proxy endpoints", a.id))
	}

	key := a.keys.Key("proxy")
	system, user := a.prompts.Build("proxy", code, language, opts.ResponseLanguage)

	var lastErr error
	for _, c := range a.candidates {
		if err := ctx.Err(); err != nil {
			return "", adapter.NewError(adapter.ClassifyErr(err), c.baseURL, err)
		}

		effKey := key
		if c.keyPrefix != "" && effKey != "" && !strings.HasPrefix(effKey, c.keyPrefix) {
			effKey = c.keyPrefix + effKey
		}

		headers := map[string]string{}
		if effKey != "" {
			headers["Authorization"] = "Bearer " + effKey
		}
		for k, v := range c.headers {
			headers[k] = v
		}

		req := httpclient.ChatRequest{
			Model: c.model,
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

		out, err := a.client.Chat(ctx, c.baseURL, headers, req)
		if err != nil {
			lastErr = err
			slog.Warn("proxy endpoint failed, trying next",
				"model", a.id, "endpoint", c.baseURL, "kind", adapter.KindOf(err), "error", err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			lastErr = adapter.NewError(adapter.KindUnclassified, c.baseURL, httpclient.ErrEmptyContent)
			slog.Warn("proxy endpoint returned empty content, trying next",
				"model", a.id, "endpoint", c.baseURL)
			continue
		}
		return out, nil
	}

	if lastErr == nil {
		lastErr = errors.New("all proxy endpoints skipped")
	}
	return "", fmt.Errorf("proxy %s exhausted %d endpoints: %w", a.id, len(a.candidates), lastErr)
}
