package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinmel/avs-examples/pkg/agent"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SimilarityScore is the length ratio of a and b scaled to [0, 100]. Lengths
// are byte lengths. Either side empty scores 0.
func SimilarityScore(a string, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	lo, hi := la, lb
	if lo > hi {
		lo, hi = hi, lo
	}
	return float64(lo) / float64(hi) * 100
}

// SimilarityValidator regenerates a reference strategy from the same inputs
// and compares it with the submitted one.
type SimilarityValidator struct {
	provider  agent.IAgentProvider
	threshold float64
	logger    *zap.Logger
}

func NewSimilarityValidator(provider agent.IAgentProvider, threshold float64, logger *zap.Logger) (*SimilarityValidator, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent provider cannot be nil")
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("threshold must be in [0, 100], got %v", threshold)
	}
	return &SimilarityValidator{
		provider:  provider,
		threshold: threshold,
		logger:    logger,
	}, nil
}

func (sv *SimilarityValidator) Validate(ctx context.Context, req *AgentValidationRequest) (*Verdict, error) {
	reference, err := generateReference(ctx, sv.provider, req)
	if err != nil {
		return nil, err
	}
	return ScoreResponses(req.AgentResponse, reference, sv.threshold), nil
}

// ScoreResponses compares the trimmed submitted and reference responses. An
// empty submission is never approved.
func ScoreResponses(submitted string, reference string, threshold float64) *Verdict {
	a := strings.TrimSpace(submitted)
	b := strings.TrimSpace(reference)
	score := SimilarityScore(a, b)
	th := threshold
	return &Verdict{
		Validator: ValidatorSimilarity,
		Approved:  a != "" && score >= threshold,
		Score:     &score,
		Threshold: &th,
		Reason:    fmt.Sprintf("submitted length %d, reference length %d", len(a), len(b)),
	}
}

func generateReference(ctx context.Context, provider agent.IAgentProvider, req *AgentValidationRequest) (string, error) {
	model, err := provider.AgentForModel(req.Context.ModelName)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create agent for model %s", req.Context.ModelName)
	}
	resp, err := agent.NewStableYieldFarmingAgent(model).GetFarmingStrategy(ctx, req.Context.Prices, req.Context.Portfolio)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate reference strategy")
	}
	return resp.Response, nil
}
