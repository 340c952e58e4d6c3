// Package httpclient is the outbound HTTP transport shared by the remote
// analysis adapters: chat-completion calls with rate limiting and
// per-attempt timeouts.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/everstacklabs/reviewd/internal/adapter"
)

// ErrEmptyContent is returned when a provider answers with a well-formed
// response carrying no text. Callers treat it as a failed attempt so blank
// reviews are never surfaced.
var ErrEmptyContent = errors.New("empty response content")

// Client issues provider API calls.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message is one chat turn in a provider request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat-completions request shape shared by the
// OpenAI-compatible providers.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat POSTs req to baseURL/chat/completions and returns the single text
// choice. Failures come back as classified *adapter.Error values.
func (c *Client) Chat(ctx context.Context, baseURL string, headers map[string]string, req ChatRequest) (string, error) {
	endpoint := baseURL + "/chat/completions"

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", adapter.NewError(adapter.ClassifyErr(err), endpoint, err)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", adapter.NewError(adapter.ClassifyErr(err), endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", adapter.NewError(adapter.KindConnectionFailed, endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := adapter.ClassifyStatus(resp.StatusCode, string(body))
		return "", adapter.NewError(kind, endpoint,
			fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(string(body), 512)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", adapter.NewError(adapter.KindUnclassified, endpoint, fmt.Errorf("parsing response: %w", err))
	}
	if chatResp.Error != nil {
		kind := adapter.ClassifyStatus(0, chatResp.Error.Type+" "+chatResp.Error.Message)
		return "", adapter.NewError(kind, endpoint,
			fmt.Errorf("provider error: %s: %s", chatResp.Error.Type, chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", adapter.NewError(adapter.KindUnclassified, endpoint, ErrEmptyContent)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
