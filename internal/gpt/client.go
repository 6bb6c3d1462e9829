// Package gpt provides an OpenAI-compatible chat client and the agent
// that uses it to understand free-form commands and answer questions
// about the mystery being prayed.
package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/rosario/internal/logger"
)

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. The agent only ever sends text.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System, User and Assistant build single-text messages.
func System(text string) Message    { return Message{Role: RoleSystem, Content: text} }
func User(text string) Message      { return Message{Role: RoleUser, Content: text} }
func Assistant(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// ErrNoReply means the endpoint answered without any choices.
var ErrNoReply = errors.New("gpt: no choices in reply")

// APIError is a non-2xx answer from the endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gpt: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Settings locate the endpoint and shape every request. Zero values
// fall back to the defaults below.
type Settings struct {
	// Endpoint is the full chat/completions URL: an Azure deployment
	// (…/openai/deployments/<dep>/chat/completions?api-version=…) or
	// an OpenAI-compatible server.
	Endpoint    string
	Key         string
	Model       string // required by OpenAI, ignored by Azure deployments
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 300
	defaultTimeout     = 20 * time.Second

	// Replies are a few sentences; anything larger is a broken proxy.
	maxReplyBytes = 1 << 20
)

func (s Settings) withDefaults() Settings {
	if s.Temperature == 0 {
		s.Temperature = defaultTemperature
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	return s
}

// Client talks to one chat-completions endpoint.
type Client struct {
	settings Settings
	azure    bool
	http     *http.Client
	log      *logger.Logger
}

// NewClient creates a client for s.
func NewClient(s Settings, log *logger.Logger) *Client {
	s = s.withDefaults()
	return &Client{
		settings: s,
		azure:    isAzure(s.Endpoint),
		http:     &http.Client{Timeout: s.Timeout},
		log:      log,
	}
}

// isAzure picks the auth scheme: Azure wants an api-key header, everyone
// else a bearer token.
func isAzure(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Hostname(), ".openai.azure.com") || u.Query().Has("api-version")
}

type completionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionReply struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

type errorReply struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends messages and returns the first choice's text, trimmed.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.settings.Model,
		Messages:    messages,
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gpt: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gpt: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.azure {
		req.Header.Set("api-key", c.settings.Key)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.settings.Key)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gpt: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("gpt: reading reply: %w", err)
	}
	c.log.Debug("gpt: %d messages -> %s in %s", len(messages), resp.Status, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp.StatusCode, raw)
	}

	var reply completionReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("gpt: decoding reply: %w", err)
	}
	if len(reply.Choices) == 0 {
		return "", ErrNoReply
	}

	choice := reply.Choices[0]
	if choice.FinishReason == "length" {
		c.log.Warn("gpt: reply cut at %d tokens", c.settings.MaxTokens)
	}
	return strings.TrimSpace(choice.Message.Content), nil
}

// apiError prefers the endpoint's own error message over the raw body.
func apiError(status int, raw []byte) *APIError {
	var e errorReply
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		msg = e.Error.Message
	}
	return &APIError{Status: status, Message: truncate(msg, 200)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
