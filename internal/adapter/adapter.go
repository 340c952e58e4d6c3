// Package adapter defines the capability contract all analysis backends
// implement, and the classified failures they surface.
package adapter

import (
	"context"

	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Options controls a single analysis request.
type Options struct {
	// ResponseLanguage selects which language(s) the review is written in.
	ResponseLanguage prompt.ResponseLanguage
	// MaxTokens bounds the response size; 0 uses the adapter default.
	MaxTokens int
	// Temperature tunes sampling; 0 uses the adapter default.
	Temperature float64
}

// Adapter analyzes a source-code snippet with one provider/backend.
type Adapter interface {
	// Name returns the implementation identity, e.g. "remote:gpt-4o".
	// It keys cache entries, so it must be stable per (type, model).
	Name() string
	// Analyze reviews code written in language and returns the review text.
	// Failures are returned as *Error with a classified Kind.
	Analyze(ctx context.Context, code, language string, opts Options) (string, error)
}
