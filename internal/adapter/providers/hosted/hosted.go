// Package hosted implements the adapter for models exposed through a
// hosted chat UI with a gradio-style predict API.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/everstacklabs/reviewd/internal/adapter"
	"github.com/everstacklabs/reviewd/internal/htmlutil"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

// Adapter drives a hosted chat space. The space takes a single text
// prompt, so the system and user prompts are concatenated.
type Adapter struct {
	id      string
	baseURL string
	http    *http.Client
	prompts *prompt.Builder
}

// New builds a hosted adapter for the space at baseURL.
func New(id, baseURL string, timeout time.Duration, prompts *prompt.Builder) *Adapter {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Adapter{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		prompts: prompts,
	}
}

func (a *Adapter) Name() string {
	return "hosted:" + a.id
}

type predictRequest struct {
	Data []any `json:"data"`
}

type predictResponse struct {
	Data []json.RawMessage `json:"data"`
}

func (a *Adapter) Analyze(ctx context.Context, code, language string, opts adapter.Options) (string, error) {
	system, user := a.prompts.Build("hosted", code, language, opts.ResponseLanguage)
	full := system + "\n\n" + user

	body, err := json.Marshal(predictRequest{Data: []any{full}})
	if err != nil {
		return "", fmt.Errorf("encode predict request: %w", err)
	}

	endpoint := a.baseURL + "/api/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", adapter.NewError(adapter.ClassifyErr(err), endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", adapter.NewError(adapter.ClassifyErr(err), endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		kind := adapter.ClassifyStatus(resp.StatusCode, string(raw))
		return "", adapter.NewError(kind, endpoint,
			fmt.Errorf("hosted space returned status %d", resp.StatusCode))
	}

	var pr predictResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return "", adapter.NewError(adapter.KindUnclassified, endpoint,
			fmt.Errorf("decode predict response: %w", err))
	}
	if len(pr.Data) == 0 {
		return "", adapter.NewError(adapter.KindUnclassified, endpoint,
			fmt.Errorf("hosted space returned no output"))
	}

	out := htmlutil.Normalize(decodeOutput(pr.Data[0]))
	if strings.TrimSpace(out) == "" {
		return "", adapter.NewError(adapter.KindUnclassified, endpoint,
			fmt.Errorf("hosted space returned empty output"))
	}
	return out, nil
}

// decodeOutput handles the two shapes spaces emit: a bare string or a
// chat history array whose last turn holds the reply.
func decodeOutput(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var history [][]string
	if err := json.Unmarshal(raw, &history); err == nil && len(history) > 0 {
		last := history[len(history)-1]
		if len(last) > 0 {
			return last[len(last)-1]
		}
	}
	return ""
}
