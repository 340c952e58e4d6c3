// Package orchestrator coordinates catalog lookup, adapter dispatch,
// caching, and the mock fallback for analysis requests.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/everstacklabs/reviewd/internal/adapter"
	"github.com/everstacklabs/reviewd/internal/adapter/factory"
	"github.com/everstacklabs/reviewd/internal/cache"
	"github.com/everstacklabs/reviewd/internal/catalog"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Request is one analysis job.
type Request struct {
	ModelID          string
	Code             string
	Language         string
	ResponseLanguage prompt.ResponseLanguage
	MaxTokens        int
	Temperature      float64
}

// Result is the outcome of an analysis. Fallback reports that the mock
// adapter produced the text after the requested model failed; Warning
// then explains what went wrong.
type Result struct {
	Text     string
	ModelID  string
	Adapter  string
	Cached   bool
	Fallback bool
	Warning  string
}

// Service runs analysis requests. Analyze never returns an error; any
// failure degrades to the mock adapter with a warning in the result.
type Service struct {
	catalog *catalog.Service
	factory *factory.Factory
	cache   *cache.Store
}

// New wires an orchestrator over the catalog, factory, and cache.
func New(cat *catalog.Service, fac *factory.Factory, store *cache.Store) *Service {
	return &Service{catalog: cat, factory: fac, cache: store}
}

// Analyze reviews code with the requested model. An empty ModelID uses
// the catalog default. An unusable model or a failed call falls back to
// the mock adapter instead of failing the request.
func (s *Service) Analyze(ctx context.Context, req Request) Result {
	if req.Language == "" {
		req.Language = "plain text"
	}
	if !req.ResponseLanguage.Valid() {
		req.ResponseLanguage = prompt.ResponseNative
	}
	opts := adapter.Options{
		ResponseLanguage: req.ResponseLanguage,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
	}

	desc, err := s.catalog.Resolve(req.ModelID)
	if err != nil {
		slog.Warn("model resolution failed, using mock", "model", req.ModelID, "error", err)
		return s.fallback(ctx, req, opts, fmt.Sprintf("model %q could not be resolved", req.ModelID))
	}

	a, err := s.factory.For(desc)
	if err != nil {
		slog.Warn("adapter build failed, using mock", "model", desc.ID, "error", err)
		return s.fallback(ctx, req, opts, fmt.Sprintf("adapter for %q could not be built: %v", desc.ID, err))
	}

	key := cache.Key(a.Name(), req.Language, req.Code)
	if text, ok := s.cache.Get(key); ok {
		slog.Debug("cache hit", "model", desc.ID, "language", req.Language)
		return Result{Text: text, ModelID: desc.ID, Adapter: a.Name(), Cached: true}
	}

	text, err := a.Analyze(ctx, req.Code, req.Language, opts)
	if err != nil {
		slog.Warn("analysis failed, using mock",
			"model", desc.ID, "adapter", a.Name(), "kind", adapter.KindOf(err), "error", err)
		return s.fallback(ctx, req, opts,
			fmt.Sprintf("model %q failed (%s), mock response shown instead", desc.ID, adapter.KindOf(err)))
	}

	if err := s.cache.Put(key, req.Language, text); err != nil {
		slog.Warn("cache write failed", "model", desc.ID, "error", err)
	}
	return Result{Text: text, ModelID: desc.ID, Adapter: a.Name()}
}

// fallback runs the mock adapter. The mock cannot fail, but a context
// already cancelled still yields its canned output with the warning.
func (s *Service) fallback(ctx context.Context, req Request, opts adapter.Options, warning string) Result {
	m := s.factory.Mock()
	text, err := m.Analyze(ctx, req.Code, req.Language, opts)
	if err != nil {
		text = "Mock review unavailable."
	}
	return Result{
		Text:     text,
		ModelID:  req.ModelID,
		Adapter:  m.Name(),
		Fallback: true,
		Warning:  warning,
	}
}

// Preload builds adapters for every catalog model concurrently. Errors
// are logged and skipped; a model that cannot preload still gets a
// fresh build attempt on first use.
func (s *Service) Preload() {
	models := s.catalog.List()
	var wg sync.WaitGroup
	for _, d := range models {
		wg.Add(1)
		go func(d catalog.Descriptor) {
			defer wg.Done()
			if _, err := s.factory.For(d); err != nil {
				slog.Warn("preload failed", "model", d.ID, "error", err)
				return
			}
			slog.Debug("preloaded adapter", "model", d.ID)
		}(d)
	}
	wg.Wait()
	slog.Info("adapter preload complete", "models", len(models))
}

// ClearCache drops all cached analysis results.
func (s *Service) ClearCache() (int, error) {
	return s.cache.Clear()
}

// CacheStats reports cache usage.
func (s *Service) CacheStats() (cache.Stats, error) {
	return s.cache.GetStats()
}
