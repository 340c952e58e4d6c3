// Package mock provides a deterministic adapter used for testing and
// as the fallback when a real adapter cannot be built or fails.
package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/everstacklabs/reviewd/internal/adapter"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Adapter returns canned review output without any network access.
type Adapter struct {
	model string
}

// New builds a mock adapter identified by model.
func New(model string) *Adapter {
	if model == "" {
		model = "mock-model"
	}
	return &Adapter{model: model}
}

func (a *Adapter) Name() string {
	return "mock:" + a.model
}

// Analyze produces a fixed markdown review. The output mentions the
// requested language and a snippet of the code so callers can tell
// responses apart.
func (a *Adapter) Analyze(_ context.Context, code, language string, opts adapter.Options) (string, error) {
	snippet := firstLine(code)

	var b strings.Builder
	fmt.Fprintf(&b, "## Mock Code Review (%s)\n\n", language)
	fmt.Fprintf(&b, "Reviewed snippet starting with: `%s`\n\n", snippet)
	b.WriteString("### Code Quality\n")
	b.WriteString("- The code is readable, but consider more descriptive names.\n\n")
	b.WriteString("### Potential Bugs\n")
	b.WriteString("- No obvious bugs detected by the mock reviewer.\n\n")
	b.WriteString("### Performance\n")
	b.WriteString("- No performance concerns in a snippet of this size.\n\n")
	b.WriteString("### Security\n")
	b.WriteString("- Validate all external input before use.\n\n")
	b.WriteString("### Best Practices\n")
	fmt.Fprintf(&b, "- Follow the idiomatic style guide for %s.\n", language)

	if opts.ResponseLanguage == prompt.ResponseBilingual {
		b.WriteString("\n---\n\n## ENGLISH RESPONSE\n\nSee the review above; the mock adapter emits a single variant.\n")
	}
	return b.String(), nil
}

func firstLine(code string) string {
	line := code
	if i := strings.IndexByte(code, '\n'); i >= 0 {
		line = code[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 60 {
		line = line[:60]
	}
	if line == "" {
		line = "(empty)"
	}
	return line
}
