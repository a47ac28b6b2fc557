// Package execution produces task results, attests to them and submits the
// signed proofs to the aggregator.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/jinmel/avs-examples/pkg/agent"
	"github.com/jinmel/avs-examples/pkg/clients/aggregatorClient"
	"github.com/jinmel/avs-examples/pkg/clients/priceClient"
	"github.com/jinmel/avs-examples/pkg/metrics"
	"github.com/jinmel/avs-examples/pkg/signer"
	"github.com/jinmel/avs-examples/pkg/taskProof"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type AgentTaskRequest struct {
	TaskDefinitionId int32
	Context          taskProof.AgentStrategyContext
}

type AgentTaskOutcome struct {
	Proof       *taskProof.TaskProof
	Response    string
	InputPrompt string
}

type TaskCoordinatorConfig struct {
	Symbol string
}

// TaskCoordinator runs fetch, build, sign and submit for one request. The
// first failing stage ends the request; nothing is retried or rolled back.
type TaskCoordinator struct {
	config        *TaskCoordinatorConfig
	signer        signer.ISigner
	priceSource   priceClient.IPriceSource
	agentProvider agent.IAgentProvider
	aggregator    aggregatorClient.IAggregatorClient
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func NewTaskCoordinator(
	cfg *TaskCoordinatorConfig,
	s signer.ISigner,
	priceSource priceClient.IPriceSource,
	agentProvider agent.IAgentProvider,
	aggregator aggregatorClient.IAggregatorClient,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*TaskCoordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if s == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &TaskCoordinator{
		config:        cfg,
		signer:        s,
		priceSource:   priceSource,
		agentProvider: agentProvider,
		aggregator:    aggregator,
		metrics:       m,
		logger:        logger,
	}, nil
}

func (tc *TaskCoordinator) Address() string {
	return tc.signer.Address().Hex()
}

// ExecuteOracleTask fetches the current price and submits it as the proof of
// task.
func (tc *TaskCoordinator) ExecuteOracleTask(ctx context.Context, taskDefinitionId int32) (*taskProof.TaskProof, error) {
	if tc.priceSource == nil {
		return nil, &StageError{Stage: StageFetching, Err: fmt.Errorf("no price source configured")}
	}
	tc.logger.Sugar().Infow("Executing price task",
		zap.Int32("taskDefinitionId", taskDefinitionId),
		zap.String("symbol", tc.config.Symbol),
	)

	tc.transition(StageFetching)
	start := time.Now()
	quote, err := tc.priceSource.GetPrice(ctx, tc.config.Symbol)
	tc.metrics.ObserveStage(StageFetching, start)
	if err != nil {
		tc.metrics.RecordUpstreamFailure(CollaboratorPriceSource)
		return nil, tc.fail(StageFetching, &UpstreamError{
			Collaborator: CollaboratorPriceSource,
			Err:          errors.Wrapf(err, "failed to fetch price for %s", tc.config.Symbol),
		})
	}
	tc.logger.Sugar().Infow("Fetched price",
		zap.String("symbol", quote.Symbol),
		zap.String("price", quote.Price),
	)

	tc.transition(StageComputing)
	payload := taskProof.NewOraclePayload(quote.Price, taskDefinitionId)

	proof, err := tc.signAndSubmit(ctx, payload)
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// ExecuteAgentTask asks the model for a farming strategy and submits the
// strategy with its inputs as the proof of task.
func (tc *TaskCoordinator) ExecuteAgentTask(ctx context.Context, req *AgentTaskRequest) (*AgentTaskOutcome, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if tc.agentProvider == nil {
		return nil, &StageError{Stage: StageFetching, Err: fmt.Errorf("no agent configured")}
	}
	tc.logger.Sugar().Infow("Executing agent task",
		zap.Int32("taskDefinitionId", req.TaskDefinitionId),
		zap.String("model", req.Context.ModelName),
	)

	tc.transition(StageFetching)
	start := time.Now()
	model, err := tc.agentProvider.AgentForModel(req.Context.ModelName)
	if err != nil {
		return nil, tc.fail(StageFetching, errors.Wrapf(err, "failed to create agent for model %s", req.Context.ModelName))
	}
	resp, err := agent.NewStableYieldFarmingAgent(model).GetFarmingStrategy(ctx, req.Context.Prices, req.Context.Portfolio)
	tc.metrics.ObserveStage(StageFetching, start)
	if err != nil {
		tc.metrics.RecordUpstreamFailure(CollaboratorAgent)
		return nil, tc.fail(StageFetching, &UpstreamError{
			Collaborator: CollaboratorAgent,
			Err:          errors.Wrap(err, "failed to get farming strategy"),
		})
	}
	tc.logger.Sugar().Debugw("Agent responded",
		zap.String("inputPrompt", resp.InputPrompt),
		zap.Int("responseLength", len(resp.Response)),
	)

	tc.transition(StageComputing)
	payload, err := taskProof.NewAgentPayload(req.Context, resp.Response, req.TaskDefinitionId)
	if err != nil {
		return nil, tc.fail(StageComputing, err)
	}

	proof, err := tc.signAndSubmit(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &AgentTaskOutcome{
		Proof:       proof,
		Response:    resp.Response,
		InputPrompt: resp.InputPrompt,
	}, nil
}

func (tc *TaskCoordinator) signAndSubmit(ctx context.Context, payload *taskProof.TaskPayload) (*taskProof.TaskProof, error) {
	tc.transition(StageSigning)
	start := time.Now()
	proof, err := payload.Sign(tc.signer)
	tc.metrics.ObserveStage(StageSigning, start)
	if err != nil {
		return nil, tc.fail(StageSigning, err)
	}

	tc.transition(StageSubmitting)
	start = time.Now()
	_, err = tc.aggregator.SendTask(ctx, proof)
	tc.metrics.ObserveStage(StageSubmitting, start)
	tc.metrics.RecordSubmission(string(proof.Kind), err)
	if err != nil {
		tc.metrics.RecordUpstreamFailure(CollaboratorAggregator)
		return nil, tc.fail(StageSubmitting, errors.Wrap(err, "failed to submit task"))
	}

	tc.logger.Sugar().Infow("Task submitted",
		zap.String("kind", string(proof.Kind)),
		zap.Int32("taskDefinitionId", proof.TaskDefinitionId),
		zap.String("messageHash", proof.MessageHash.Hex()),
	)
	return proof, nil
}

func (tc *TaskCoordinator) transition(stage string) {
	tc.logger.Sugar().Debugw("Task state", zap.String("state", stage))
}

func (tc *TaskCoordinator) fail(stage string, err error) error {
	tc.logger.Sugar().Errorw("Task failed",
		zap.String("stage", stage),
		zap.Error(err),
	)
	return &StageError{Stage: stage, Err: err}
}
