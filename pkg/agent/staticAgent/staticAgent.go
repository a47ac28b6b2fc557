// Package staticAgent is a deterministic IAgent for tests.
package staticAgent

import (
	"context"
	"sync"

	"github.com/jinmel/avs-examples/pkg/agent"
)

type ResponseFunc func(messages []agent.Message) (string, error)

type StaticAgent struct {
	mu       sync.Mutex
	respond  ResponseFunc
	calls    [][]agent.Message
	models   []string
	response string
}

// NewStaticAgent answers every chat with response.
func NewStaticAgent(response string) *StaticAgent {
	return &StaticAgent{response: response}
}

// NewStaticAgentFunc answers every chat with the result of fn.
func NewStaticAgentFunc(fn ResponseFunc) *StaticAgent {
	return &StaticAgent{respond: fn}
}

func (s *StaticAgent) Chat(_ context.Context, messages []agent.Message) (*agent.ChatResponse, error) {
	copied := make([]agent.Message, len(messages))
	copy(copied, messages)

	s.mu.Lock()
	s.calls = append(s.calls, copied)
	s.mu.Unlock()

	response := s.response
	if s.respond != nil {
		var err error
		response, err = s.respond(copied)
		if err != nil {
			return nil, err
		}
	}
	return &agent.ChatResponse{
		InputPrompt: agent.FormatInputPrompt(copied),
		Response:    response,
	}, nil
}

// Calls returns the message lists received so far.
func (s *StaticAgent) Calls() [][]agent.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]agent.Message, len(s.calls))
	copy(out, s.calls)
	return out
}

// Models returns the model names requested through AgentForModel.
func (s *StaticAgent) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.models))
	copy(out, s.models)
	return out
}

// AgentForModel returns the receiver regardless of model.
func (s *StaticAgent) AgentForModel(model string) (agent.IAgent, error) {
	s.mu.Lock()
	s.models = append(s.models, model)
	s.mu.Unlock()
	return s, nil
}

var (
	_ agent.IAgent         = (*StaticAgent)(nil)
	_ agent.IAgentProvider = (*StaticAgent)(nil)
)
