// Package agent defines the chat contract shared by the language model
// backends and the yield farming strategy wrapper built on top of it.
package agent

import (
	"context"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// ChatResponse carries the model reply together with the transcript that
// produced it.
type ChatResponse struct {
	InputPrompt string
	Response    string
}

type IAgent interface {
	Chat(ctx context.Context, messages []Message) (*ChatResponse, error)
}

// IAgentProvider hands out an agent bound to a model name. The model is
// chosen per request by the caller.
type IAgentProvider interface {
	AgentForModel(model string) (IAgent, error)
}

// FormatInputPrompt renders messages as "role:\ncontent" blocks separated by
// a blank line.
func FormatInputPrompt(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, fmt.Sprintf("%s:\n%s", msg.Role, msg.Content))
	}
	return strings.Join(parts, "\n\n")
}

type unavailableProvider struct {
	err error
}

// NewUnavailableProvider returns a provider that fails every request with
// err. Nodes use it when no model backend is configured.
func NewUnavailableProvider(err error) IAgentProvider {
	return &unavailableProvider{err: err}
}

func (p *unavailableProvider) AgentForModel(string) (IAgent, error) {
	return nil, p.err
}
