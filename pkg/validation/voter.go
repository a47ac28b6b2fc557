// Package validation decides whether a submitted task result should be
// approved. It never submits anything to the aggregator.
package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinmel/avs-examples/pkg/agent"
	"github.com/jinmel/avs-examples/pkg/clients/priceClient"
	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/jinmel/avs-examples/pkg/metrics"
	"github.com/jinmel/avs-examples/pkg/taskProof"
	"go.uber.org/zap"
)

const (
	StageParsing  = "parsing"
	StageFetching = "fetching"
	StageScoring  = "scoring"

	collaboratorPriceSource = "price_source"
	collaboratorAgent       = "agent"
)

type VoterConfig struct {
	Symbol              string
	PriceTolerance      float64
	SimilarityThreshold float64
}

func DefaultVoterConfig() *VoterConfig {
	return &VoterConfig{
		Symbol:              config.DefaultPriceSymbol,
		PriceTolerance:      config.DefaultPriceTolerance,
		SimilarityThreshold: config.DefaultSimilarityScore,
	}
}

// Voter selects a validator for each incoming task and returns its verdict.
type Voter struct {
	bounds     *BoundValidator
	similarity *SimilarityValidator
	judge      *JudgeValidator
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewVoter(
	cfg *VoterConfig,
	priceSource priceClient.IPriceSource,
	provider agent.IAgentProvider,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Voter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	bounds, err := NewBoundValidator(priceSource, cfg.Symbol, cfg.PriceTolerance, logger)
	if err != nil {
		return nil, err
	}
	similarity, err := NewSimilarityValidator(provider, cfg.SimilarityThreshold, logger)
	if err != nil {
		return nil, err
	}
	judge, err := NewJudgeValidator(provider, logger)
	if err != nil {
		return nil, err
	}
	return &Voter{
		bounds:     bounds,
		similarity: similarity,
		judge:      judge,
		metrics:    m,
		logger:     logger,
	}, nil
}

// Vote picks the validator from the shape of proofOfTask: agent proofs are
// scored for similarity, anything else is treated as a price.
func (v *Voter) Vote(ctx context.Context, proofOfTask string) (*Verdict, error) {
	v.logger.Sugar().Debugw("Vote state", zap.String("state", StageParsing))
	if strategyCtx, response, ok := taskProof.ParseAgentProofOfTask(proofOfTask); ok {
		return v.ValidateAgent(ctx, &AgentValidationRequest{
			Context:       *strategyCtx,
			AgentResponse: response,
		})
	}
	return v.ValidateOracle(ctx, proofOfTask)
}

func (v *Voter) ValidateOracle(ctx context.Context, proofOfTask string) (*Verdict, error) {
	start := time.Now()
	v.logger.Sugar().Infow("Validating price task", zap.String("proofOfTask", proofOfTask))
	v.logger.Sugar().Debugw("Vote state", zap.String("state", StageFetching))

	verdict, err := v.bounds.Validate(ctx, proofOfTask)
	v.metrics.ObserveStage(StageScoring, start)
	if err != nil {
		return nil, v.fail(ValidatorBounds, collaboratorPriceSource, err)
	}
	return v.done(verdict), nil
}

func (v *Voter) ValidateAgent(ctx context.Context, req *AgentValidationRequest) (*Verdict, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	start := time.Now()
	v.logger.Sugar().Infow("Validating agent task",
		zap.Int32("taskDefinitionId", req.TaskDefinitionId),
		zap.String("model", req.Context.ModelName),
	)
	v.logger.Sugar().Debugw("Vote state", zap.String("state", StageFetching))

	verdict, err := v.similarity.Validate(ctx, req)
	v.metrics.ObserveStage(StageScoring, start)
	if err != nil {
		return nil, v.fail(ValidatorSimilarity, collaboratorAgent, err)
	}
	return v.done(verdict), nil
}

func (v *Voter) JudgeAgent(ctx context.Context, req *AgentValidationRequest) (*Verdict, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	v.logger.Sugar().Infow("Judging agent task",
		zap.Int32("taskDefinitionId", req.TaskDefinitionId),
		zap.String("model", req.Context.ModelName),
	)
	v.logger.Sugar().Debugw("Vote state", zap.String("state", StageFetching))

	verdict, err := v.judge.Validate(ctx, req)
	if err != nil {
		return nil, v.fail(ValidatorJudge, collaboratorAgent, err)
	}
	return v.done(verdict), nil
}

func (v *Voter) done(verdict *Verdict) *Verdict {
	v.metrics.RecordVote(verdict.Validator, verdict.Approved)
	fields := []interface{}{
		zap.String("validator", verdict.Validator),
		zap.Bool("approved", verdict.Approved),
		zap.String("reason", verdict.Reason),
	}
	if verdict.Score != nil && verdict.Threshold != nil {
		fields = append(fields, zap.Float64("score", *verdict.Score), zap.Float64("threshold", *verdict.Threshold))
	}
	v.logger.Sugar().Infow("Vote cast", fields...)
	return verdict
}

// fail counts collaborator failures; input errors are not the collaborator's
// fault.
func (v *Voter) fail(validator string, collaborator string, err error) error {
	var inputErr *ValidationInputError
	if !errors.As(err, &inputErr) {
		v.metrics.RecordUpstreamFailure(collaborator)
	}
	v.logger.Sugar().Errorw("Validation failed",
		zap.String("validator", validator),
		zap.Error(err),
	)
	return err
}
