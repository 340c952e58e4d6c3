// Package local implements the adapter for models served by a local
// Ollama runtime.
package local

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	ollama "github.com/JexSrs/go-ollama"

	"github.com/everstacklabs/reviewd/internal/adapter"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Adapter runs analysis against a model loaded by Ollama.
type Adapter struct {
	id      string
	tag     string
	path    string
	client  *ollama.Ollama
	prompts *prompt.Builder
}

// New builds a local adapter for the descriptor id. host is the Ollama
// base URL, path the model weights directory, quantization the variant
// suffix appended to the model tag when the host has hardware
// acceleration.
func New(id, host, path, quantization string, prompts *prompt.Builder) (*Adapter, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", host, err)
	}
	return &Adapter{
		id:      id,
		tag:     ModelTag(id, quantization, Accelerated()),
		path:    path,
		client:  ollama.New(*u),
		prompts: prompts,
	}, nil
}

// ModelTag maps a catalog id and quantization to the Ollama model tag.
// The quantization becomes the tag variant, e.g. mistral-7b with q4_0
// becomes mistral-7b:q4_0. Without acceleration the quantized variant
// is skipped and the base tag is used.
func ModelTag(id, quantization string, accelerated bool) string {
	if quantization == "" || !accelerated {
		return id
	}
	return id + ":" + quantization
}

// Accelerated reports whether the host exposes GPU or Apple silicon
// acceleration usable by the Ollama runtime.
func Accelerated() bool {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return true
	}
	for _, p := range []string{"/proc/driver/nvidia/version", "/dev/nvidia0", "/dev/kfd"} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// Available reports whether the model weights exist on disk.
func (a *Adapter) Available() bool {
	if a.path == "" {
		return true
	}
	_, err := os.Stat(a.path)
	return err == nil
}

func (a *Adapter) Name() string {
	return "local:" + a.id
}

func (a *Adapter) Analyze(ctx context.Context, code, language string, opts adapter.Options) (string, error) {
	if !a.Available() {
		return "", adapter.NewError(adapter.KindModelUnavailable, a.path,
			fmt.Errorf("model weights not found at %s", a.path))
	}
	if err := ctx.Err(); err != nil {
		return "", adapter.NewError(adapter.ClassifyErr(err), a.tag, err)
	}

	system, user := a.prompts.Build("local", code, language, opts.ResponseLanguage)

	res, err := a.client.Generate(
		a.client.Generate.WithModel(a.tag),
		a.client.Generate.WithSystem(system),
		a.client.Generate.WithPrompt(user),
	)
	if err != nil {
		return "", adapter.NewError(adapter.ClassifyErr(err), a.tag,
			fmt.Errorf("ollama generate: %w", err))
	}
	if !res.Done {
		return "", adapter.NewError(adapter.KindUnclassified, a.tag,
			fmt.Errorf("ollama response for %s not finished", a.tag))
	}
	out := strings.TrimSpace(res.Response)
	if out == "" {
		return "", adapter.NewError(adapter.KindUnclassified, a.tag,
			fmt.Errorf("ollama returned empty response for %s", a.tag))
	}
	return out, nil
}

// WeightsPath resolves a model path against the models directory.
func WeightsPath(modelsDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(modelsDir, path)
}
