package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelOff, nil)
}

// fakeChat returns a canned reply and records the last request.
type fakeChat struct {
	reply string
	err   error
	last  []Message
}

func (f *fakeChat) Chat(ctx context.Context, messages []Message) (string, error) {
	f.last = messages
	return f.reply, f.err
}

func sampleContext() Context {
	return Context{
		Mystery:  "Joyful Mysteries",
		Language: domain.Spanish,
		Step:     domain.Step{Type: domain.StepHailMary, Title: "Ave María 3/10", DecadeNumber: 2, HailMaryNumber: 3},
		Index:    22,
		Total:    91,
		Decade:   &domain.DecadeInfo{Number: 2, Title: "La Visitación", Fruit: "Caridad", Reference: "Lc 1, 39-56"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantType    domain.CommandType
		wantPayload string
	}{
		{"plain json", `{"command":"next","payload":""}`, domain.CommandNext, ""},
		{"fenced json", "```json\n{\"command\": \"jump\", \"payload\": \"12\"}\n```", domain.CommandJump, "12"},
		{"case and space", `{"command":" Language ","payload":"es"}`, domain.CommandLanguage, "es"},
		{"ask keeps input", `{"command":"ask","payload":""}`, domain.CommandAsk, "who was Elizabeth"},
		{"unknown command", `{"command":"dance","payload":""}`, domain.CommandUnknown, "who was Elizabeth"},
		{"not json", "I think you want the next prayer.", domain.CommandUnknown, "who was Elizabeth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAgent(&fakeChat{reply: tt.reply}, testLogger())
			cmd, err := a.Classify(context.Background(), "who was Elizabeth", sampleContext())
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if cmd.Type != tt.wantType || cmd.Payload != tt.wantPayload {
				t.Errorf("got %s %q, want %s %q", cmd.Type, cmd.Payload, tt.wantType, tt.wantPayload)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	boom := errors.New("boom")
	a := NewAgent(&fakeChat{err: boom}, testLogger())
	if _, err := a.Classify(context.Background(), "x", Context{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestAskSendsContext(t *testing.T) {
	f := &fakeChat{reply: "  Isabel era prima de María.  "}
	a := NewAgent(f, testLogger())

	got, err := a.Ask(context.Background(), "¿Quién era Isabel?", sampleContext())
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "Isabel era prima de María." {
		t.Errorf("answer = %q", got)
	}

	if len(f.last) != 4 {
		t.Fatalf("got %d messages, want system, context, ack, question", len(f.last))
	}
	if f.last[0].Role != RoleSystem || f.last[0].Content != PromptQuestion {
		t.Errorf("first message is not the question prompt")
	}
	block := f.last[1].Content
	for _, want := range []string{"Step: 23 of 91", "La Visitación", "Caridad", "Lc 1, 39-56", "Language: es"} {
		if !strings.Contains(block, want) {
			t.Errorf("context missing %q:\n%s", want, block)
		}
	}
	if f.last[3].Content != "¿Quién era Isabel?" {
		t.Errorf("last message = %q", f.last[3].Content)
	}
}

func TestNoContextWithoutSession(t *testing.T) {
	f := &fakeChat{reply: `{"command":"help"}`}
	a := NewAgent(f, testLogger())
	if _, err := a.Classify(context.Background(), "what can I say", Context{}); err != nil {
		t.Fatal(err)
	}
	if len(f.last) != 2 {
		t.Errorf("got %d messages, want system and input only", len(f.last))
	}
}

func TestClientChat(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":" hello\n"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewClient(Settings{Endpoint: srv.URL + "/v1/chat/completions", Key: "secret", Model: "small", MaxTokens: 50}, testLogger())
	reply, err := c.Chat(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "hello" {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer secret" || gotKey != "" {
		t.Errorf("auth headers: Authorization=%q api-key=%q", gotAuth, gotKey)
	}
	if gotBody.MaxTokens != 50 || gotBody.Model != "small" || gotBody.Temperature != defaultTemperature {
		t.Errorf("body = %+v", gotBody)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0] != User("hi") {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestClientAzureAuth(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Settings{Endpoint: srv.URL + "/openai/deployments/d/chat/completions?api-version=2024-02-01", Key: "k"}, testLogger())
	if _, err := c.Chat(context.Background(), []Message{User("hi")}); err != nil {
		t.Fatal(err)
	}
	if gotKey != "k" {
		t.Errorf("api-key = %q", gotKey)
	}
}

func TestIsAzure(t *testing.T) {
	tests := map[string]bool{
		"https://res.openai.azure.com/openai/deployments/x/chat/completions": true,
		"http://127.0.0.1:8080/chat/completions?api-version=2024-02-01":      true,
		"https://api.openai.com/v1/chat/completions":                         false,
		"::bad": false,
	}
	for in, want := range tests {
		if got := isAzure(in); got != want {
			t.Errorf("isAzure(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClientChatErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      string
		retryable bool
	}{
		{"http error", http.StatusTooManyRequests, "slow down", "429", true},
		{"api message", http.StatusBadRequest, `{"error":{"message":"context too long"}}`, "context too long", false},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices", false},
		{"bad json", http.StatusOK, `{`, "decoding", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(Settings{Endpoint: srv.URL, Key: "k"}, testLogger()).Chat(context.Background(), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Retryable() != tt.retryable {
				t.Errorf("Retryable = %v, want %v", apiErr.Retryable(), tt.retryable)
			}
		})
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := Settings{}.withDefaults()
	if s.Temperature != defaultTemperature || s.MaxTokens != defaultMaxTokens || s.Timeout != defaultTimeout {
		t.Errorf("defaults = %+v", s)
	}
	s = Settings{MaxTokens: 80, Timeout: time.Second}.withDefaults()
	if s.MaxTokens != 80 || s.Timeout != time.Second {
		t.Errorf("overrides lost: %+v", s)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"{}":                     "{}",
		"```json\n{}\n```":       "{}",
		"```\n{\"a\":1}\n```\n ": `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
