package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinmel/avs-examples/pkg/agent"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// JudgeValidator asks the model itself whether a submitted strategy is sound.
type JudgeValidator struct {
	provider agent.IAgentProvider
	logger   *zap.Logger
}

func NewJudgeValidator(provider agent.IAgentProvider, logger *zap.Logger) (*JudgeValidator, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent provider cannot be nil")
	}
	return &JudgeValidator{provider: provider, logger: logger}, nil
}

func (jv *JudgeValidator) Validate(ctx context.Context, req *AgentValidationRequest) (*Verdict, error) {
	model, err := jv.provider.AgentForModel(req.Context.ModelName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create agent for model %s", req.Context.ModelName)
	}
	resp, err := agent.NewStableYieldFarmingAgent(model).Judge(ctx, req.Context.Prices, req.Context.Portfolio, req.AgentResponse)
	if err != nil {
		return nil, errors.Wrap(err, "failed to judge agent response")
	}
	return ParseJudgement(resp.Response)
}

// ParseJudgement accepts "yes" or "no", case and surrounding space ignored.
func ParseJudgement(reply string) (*Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "yes":
		return &Verdict{Validator: ValidatorJudge, Approved: true, Reason: "judge answered yes"}, nil
	case "no":
		return &Verdict{Validator: ValidatorJudge, Approved: false, Reason: "judge answered no"}, nil
	default:
		return nil, &ValidationInputError{
			Field: "judge response",
			Value: reply,
			Err:   fmt.Errorf("expected yes or no"),
		}
	}
}
