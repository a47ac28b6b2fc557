// Package executionServer exposes the task coordinator over HTTP.
package executionServer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jinmel/avs-examples/pkg/execution"
	"github.com/jinmel/avs-examples/pkg/server"
	"github.com/jinmel/avs-examples/pkg/taskProof"
	"go.uber.org/zap"
)

const (
	TaskExecutedMessage = "Task executed successfully"

	networkErrorMessage  = "Network error occurred"
	agentErrorMessage    = "Error calling farming agent"
	submitErrorMessage   = "Error submitting task"
	internalErrorMessage = "Error processing task"
	agentSuccessStatus   = "success"
)

type ITaskCoordinator interface {
	ExecuteOracleTask(ctx context.Context, taskDefinitionId int32) (*taskProof.TaskProof, error)
	ExecuteAgentTask(ctx context.Context, req *execution.AgentTaskRequest) (*execution.AgentTaskOutcome, error)
}

type ExecuteTaskRequest struct {
	TaskDefinitionId *int32 `json:"taskDefinitionId"`
}

type ExecuteAgentTaskRequest struct {
	TaskDefinitionId *int32 `json:"taskDefinitionId"`
	Prices           string `json:"prices"`
	Portfolio        string `json:"portfolio"`
	ModelName        string `json:"model_name"`
}

type AgentTaskData struct {
	Response string `json:"response"`
}

type ExecuteAgentTaskResponse struct {
	Status string        `json:"status"`
	Data   AgentTaskData `json:"data"`
}

type ExecutionServer struct {
	coordinator ITaskCoordinator
	logger      *zap.Logger
}

// NewExecutionServer mounts the task routes on s.
func NewExecutionServer(s *server.Server, coordinator ITaskCoordinator, logger *zap.Logger) (*ExecutionServer, error) {
	if s == nil {
		return nil, fmt.Errorf("server cannot be nil")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	es := &ExecutionServer{coordinator: coordinator, logger: logger}
	s.Router().Post("/task/execute", es.handleExecute)
	s.Router().Post("/task/execute-agent", es.handleExecuteAgent)
	return es, nil
}

// taskDefinitionIdOrDefault treats an omitted id as task 0.
func taskDefinitionIdOrDefault(id *int32) int32 {
	if id == nil {
		return 0
	}
	return *id
}

func (es *ExecutionServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	l := server.LoggerFromContext(r.Context(), es.logger)

	var req ExecuteTaskRequest
	if err := server.DecodeJsonBody(r, &req); err != nil {
		server.WriteJsonError(w, err, http.StatusBadRequest, l)
		return
	}
	taskDefinitionId := taskDefinitionIdOrDefault(req.TaskDefinitionId)
	l.Sugar().Infow("Executing task", zap.Int32("taskDefinitionId", taskDefinitionId))

	if _, err := es.coordinator.ExecuteOracleTask(r.Context(), taskDefinitionId); err != nil {
		status, message := failureResponse(err, networkErrorMessage)
		l.Sugar().Errorw("Failed to execute task",
			zap.Int32("taskDefinitionId", taskDefinitionId),
			zap.String("stage", execution.FailedStage(err)),
			zap.Error(err),
		)
		server.WriteJsonResponse(w, status, message, l)
		return
	}
	server.WriteJsonResponse(w, http.StatusOK, TaskExecutedMessage, l)
}

func (es *ExecutionServer) handleExecuteAgent(w http.ResponseWriter, r *http.Request) {
	l := server.LoggerFromContext(r.Context(), es.logger)

	var req ExecuteAgentTaskRequest
	if err := server.DecodeJsonBody(r, &req); err != nil {
		server.WriteJsonError(w, err, http.StatusBadRequest, l)
		return
	}
	taskDefinitionId := taskDefinitionIdOrDefault(req.TaskDefinitionId)
	l.Sugar().Infow("Executing agent task",
		zap.Int32("taskDefinitionId", taskDefinitionId),
		zap.String("model", req.ModelName),
	)

	outcome, err := es.coordinator.ExecuteAgentTask(r.Context(), &execution.AgentTaskRequest{
		TaskDefinitionId: taskDefinitionId,
		Context: taskProof.AgentStrategyContext{
			Prices:    req.Prices,
			Portfolio: req.Portfolio,
			ModelName: req.ModelName,
		},
	})
	if err != nil {
		status, message := failureResponse(err, agentErrorMessage)
		l.Sugar().Errorw("Failed to execute agent task",
			zap.Int32("taskDefinitionId", taskDefinitionId),
			zap.String("stage", execution.FailedStage(err)),
			zap.Error(err),
		)
		server.WriteJsonResponse(w, status, message, l)
		return
	}

	server.WriteJsonResponse(w, http.StatusOK, &ExecuteAgentTaskResponse{
		Status: agentSuccessStatus,
		Data:   AgentTaskData{Response: outcome.Response},
	}, l)
}

// failureResponse maps a coordinator failure to a status and message. Input
// fetching and submission failures are service unavailable.
func failureResponse(err error, fetchMessage string) (int, string) {
	switch execution.FailedStage(err) {
	case execution.StageFetching:
		return http.StatusServiceUnavailable, fetchMessage
	case execution.StageSubmitting:
		return http.StatusServiceUnavailable, submitErrorMessage
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}
