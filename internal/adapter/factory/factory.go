// Package factory builds and caches adapter instances from catalog
// descriptors.
package factory

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/everstacklabs/reviewd/internal/adapter"
	"github.com/everstacklabs/reviewd/internal/adapter/providers/hosted"
	"github.com/everstacklabs/reviewd/internal/adapter/providers/local"
	"github.com/everstacklabs/reviewd/internal/adapter/providers/mock"
	"github.com/everstacklabs/reviewd/internal/adapter/providers/proxy"
	"github.com/everstacklabs/reviewd/internal/adapter/providers/remote"
	"github.com/everstacklabs/reviewd/internal/catalog"
	"github.com/everstacklabs/reviewd/internal/httpclient"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Keyring resolves provider credentials.
type Keyring interface {
	Key(provider string) string
}

// Factory constructs adapters and caches one instance per model id.
// Catalog mutations must evict the affected id.
type Factory struct {
	mu        sync.Mutex
	instances map[string]adapter.Adapter

	keys      Keyring
	client    *httpclient.Client
	prompts   *prompt.Builder
	ollamaURL string
	timeout   time.Duration
}

// New creates a Factory. ollamaURL points at the local model runtime,
// timeout bounds hosted space calls.
func New(keys Keyring, client *httpclient.Client, prompts *prompt.Builder, ollamaURL string, timeout time.Duration) *Factory {
	return &Factory{
		instances: make(map[string]adapter.Adapter),
		keys:      keys,
		client:    client,
		prompts:   prompts,
		ollamaURL: ollamaURL,
		timeout:   timeout,
	}
}

// For returns the adapter for d, building and caching it on first use.
// An unknown provider type falls back to the mock adapter.
func (f *Factory) For(d catalog.Descriptor) (adapter.Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.instances[d.ID]; ok {
		return a, nil
	}
	a, err := f.build(d)
	if err != nil {
		return nil, err
	}
	f.instances[d.ID] = a
	return a, nil
}

func (f *Factory) build(d catalog.Descriptor) (adapter.Adapter, error) {
	switch d.Type {
	case catalog.TypeRemoteAPI:
		provider := d.Config.Provider
		if provider == "" {
			provider = "openai"
		}
		return remote.New(d.ID, provider, d.Config.BaseURL, d.Config.Headers, f.keys, f.client, f.prompts), nil
	case catalog.TypeProxy:
		return proxy.New(d.ID, d.Config, f.keys, f.client, f.prompts), nil
	case catalog.TypeLocal:
		a, err := local.New(d.ID, f.ollamaURL, d.Config.Path, d.Config.Quantization, f.prompts)
		if err != nil {
			return nil, fmt.Errorf("build local adapter for %s: %w", d.ID, err)
		}
		return a, nil
	case catalog.TypeHostedUI:
		return hosted.New(d.ID, d.Config.BaseURL, f.timeout, f.prompts), nil
	case catalog.TypeMock:
		return mock.New(d.ID), nil
	default:
		slog.Warn("unknown provider type, using mock adapter", "model", d.ID, "type", d.Type)
		return mock.New(d.ID), nil
	}
}

// Evict drops the cached instance for id so the next For rebuilds it.
func (f *Factory) Evict(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.instances, id)
}

// Mock returns the shared fallback adapter.
func (f *Factory) Mock() adapter.Adapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	const id = "mock-model"
	if a, ok := f.instances[id]; ok {
		return a
	}
	a := mock.New(id)
	f.instances[id] = a
	return a
}
