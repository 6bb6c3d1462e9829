package gpt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

// Chatter is the chat-completion call the agent depends on. *Client
// implements it.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

var _ Chatter = (*Client)(nil)

// Context is the prayer state shared with the model.
type Context struct {
	Mystery  string
	Language domain.Language
	Step     domain.Step
	Index    int // 0-based
	Total    int
	Decade   *domain.DecadeInfo
}

// Agent wraps a Chatter with prayer-domain context building.
type Agent struct {
	client Chatter
	log    *logger.Logger
}

// NewAgent creates an agent backed by client.
func NewAgent(client Chatter, log *logger.Logger) *Agent {
	return &Agent{client: client, log: log}
}

// classifyResponse is the JSON the model returns for classification.
type classifyResponse struct {
	Command string `json:"command"`
	Payload string `json:"payload"`
}

// Classify maps input the keyword parser did not recognise to a command.
// An unparseable reply yields CommandUnknown carrying the input.
func (a *Agent) Classify(ctx context.Context, input string, pc Context) (*domain.Command, error) {
	raw, err := a.client.Chat(ctx, a.buildMessages(PromptClassify, input, pc))
	if err != nil {
		return nil, err
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		a.log.Error("gpt: failed to parse classify JSON: %v\nraw: %s", err, raw)
		return &domain.Command{Type: domain.CommandUnknown, Payload: input}, nil
	}

	cmd := &domain.Command{
		Type:    domain.CommandFromString(strings.ToLower(strings.TrimSpace(resp.Command))),
		Payload: strings.TrimSpace(resp.Payload),
	}
	if (cmd.Type == domain.CommandUnknown || cmd.Type == domain.CommandAsk) && cmd.Payload == "" {
		cmd.Payload = input
	}
	a.log.Debug("gpt: classified %q -> %s (payload=%q)", input, cmd.Type, cmd.Payload)
	return cmd, nil
}

// Ask answers a question about the prayer or mystery in the session's
// language, briefly enough to be read aloud.
func (a *Agent) Ask(ctx context.Context, question string, pc Context) (string, error) {
	reply, err := a.client.Chat(ctx, a.buildMessages(PromptQuestion, question, pc))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// stripCodeFence removes ```json ... ``` wrappers that LLMs love to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// buildMessages assembles the system prompt, the prayer context with a
// faked acknowledgment, and the user's words.
func (a *Agent) buildMessages(systemPrompt, userQuery string, pc Context) []Message {
	msgs := []Message{System(systemPrompt)}
	if block := buildContext(pc); block != "" {
		msgs = append(msgs, User(block), Assistant("Understood."))
	}
	return append(msgs, User(userQuery))
}

// buildContext serializes the prayer state into a plain-text block.
func buildContext(pc Context) string {
	if pc.Total == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("[Prayer Context]\n")
	fmt.Fprintf(&b, "Prayer: %s\n", pc.Mystery)
	fmt.Fprintf(&b, "Language: %s\n", pc.Language)
	fmt.Fprintf(&b, "Step: %d of %d (%s)\n", pc.Index+1, pc.Total, pc.Step.Type)
	if pc.Step.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", pc.Step.Title)
	}
	if d := pc.Decade; d != nil {
		fmt.Fprintf(&b, "\n[Decade %d]\n", d.Number)
		fmt.Fprintf(&b, "Mystery: %s\n", d.Title)
		if d.Fruit != "" {
			fmt.Fprintf(&b, "Fruit: %s\n", d.Fruit)
		}
		if d.Reference != "" {
			fmt.Fprintf(&b, "Scripture: %s\n", d.Reference)
		}
		if d.Reflection != "" {
			fmt.Fprintf(&b, "Reflection: %s\n", truncate(d.Reflection, 600))
		}
	}
	return b.String()
}
