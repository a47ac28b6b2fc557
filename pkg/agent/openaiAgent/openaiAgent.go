// Package openaiAgent implements agent.IAgent on the OpenAI chat completions
// API.
package openaiAgent

import (
	"context"
	"fmt"
	"time"

	"github.com/jinmel/avs-examples/pkg/agent"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const DefaultModel = "gpt-4"

type Config struct {
	ApiKey string
	// BaseUrl overrides the API endpoint, e.g. for a compatible proxy
	BaseUrl string
	// Temperature is sent only when greater than zero
	Temperature float64
	Timeout     time.Duration
}

// Provider shares one API client between the per-model agents it creates.
type Provider struct {
	client      openai.Client
	temperature float64
	logger      *zap.Logger
}

func NewProvider(cfg *Config, logger *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.ApiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.ApiKey),
		// calls are single attempt
		option.WithMaxRetries(0),
	}
	if cfg.BaseUrl != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseUrl))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Provider{
		client:      openai.NewClient(opts...),
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (p *Provider) AgentForModel(model string) (agent.IAgent, error) {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIAgent{
		client:      p.client,
		model:       model,
		temperature: p.temperature,
		logger:      p.logger,
	}, nil
}

type OpenAIAgent struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

func (a *OpenAIAgent) Model() string {
	return a.model
}

func (a *OpenAIAgent) Chat(ctx context.Context, messages []agent.Message) (*agent.ChatResponse, error) {
	inputPrompt := agent.FormatInputPrompt(messages)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: toRequestMessages(messages),
	}
	if a.temperature > 0 {
		params.Temperature = openai.Float(a.temperature)
	}

	a.logger.Sugar().Debugw("Sending chat completion request",
		zap.String("model", a.model),
		zap.Int("messages", len(messages)),
		zap.String("inputPrompt", inputPrompt),
	)

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	response := completion.Choices[0].Message.Content
	a.logger.Sugar().Debugw("Received chat completion",
		zap.String("model", a.model),
		zap.String("id", completion.ID),
		zap.Int("responseLength", len(response)),
	)
	return &agent.ChatResponse{
		InputPrompt: inputPrompt,
		Response:    response,
	}, nil
}

// toRequestMessages maps roles onto the API message variants. Unknown roles
// are sent as user messages.
func toRequestMessages(messages []agent.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case agent.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

var (
	_ agent.IAgent         = (*OpenAIAgent)(nil)
	_ agent.IAgentProvider = (*Provider)(nil)
)
