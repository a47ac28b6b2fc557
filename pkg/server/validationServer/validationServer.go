// Package validationServer exposes the voter over HTTP.
package validationServer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jinmel/avs-examples/pkg/server"
	"github.com/jinmel/avs-examples/pkg/taskProof"
	"github.com/jinmel/avs-examples/pkg/validation"
	"go.uber.org/zap"
)

const (
	TaskValidatedMessage  = "Task validated successfully"
	AgentValidatedMessage = "Agent response validated successfully"
	AgentJudgedMessage    = "Agent response judged successfully"

	validationErrorMessage = "Error during validation step"
	strategyErrorMessage   = "Error during strategy generation"
	judgeErrorMessage      = "Error during agent validation"
	invalidInputMessage    = "Invalid task input"
)

type IVoter interface {
	// Vote picks the validator from the shape of proofOfTask.
	Vote(ctx context.Context, proofOfTask string) (*validation.Verdict, error)
	ValidateAgent(ctx context.Context, req *validation.AgentValidationRequest) (*validation.Verdict, error)
	JudgeAgent(ctx context.Context, req *validation.AgentValidationRequest) (*validation.Verdict, error)
}

type ValidateTaskRequest struct {
	ProofOfTask string `json:"proofOfTask"`
}

type ValidateAgentRequest struct {
	Prices           string `json:"prices"`
	Portfolio        string `json:"portfolio"`
	ModelName        string `json:"model_name"`
	TaskDefinitionId int32  `json:"task_definition_id"`
	AgentResponse    string `json:"agent_response"`
}

type Response struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// ErrorResponse always carries Error set to true so a failed validation can
// never be read as a false verdict.
type ErrorResponse struct {
	Data    interface{} `json:"data"`
	Error   bool        `json:"error"`
	Message string      `json:"message"`
}

type ValidateTaskData struct {
	Result bool `json:"result"`
}

type ValidationDetails struct {
	SimilarityScore float64 `json:"similarity_score"`
	Threshold       float64 `json:"threshold"`
	MeetsThreshold  bool    `json:"meets_threshold"`
}

type ValidateAgentData struct {
	Result            bool               `json:"result"`
	TaskDefinitionId  int32              `json:"task_definition_id"`
	ModelName         string             `json:"model_name"`
	ValidationDetails *ValidationDetails `json:"validation_details,omitempty"`
}

type agentErrorData struct {
	TaskDefinitionId int32  `json:"task_definition_id"`
	ModelName        string `json:"model_name"`
}

type ValidationServer struct {
	voter  IVoter
	logger *zap.Logger
}

func NewValidationServer(s *server.Server, voter IVoter, logger *zap.Logger) (*ValidationServer, error) {
	if s == nil {
		return nil, fmt.Errorf("server cannot be nil")
	}
	if voter == nil {
		return nil, fmt.Errorf("voter cannot be nil")
	}
	vs := &ValidationServer{voter: voter, logger: logger}
	s.Router().Post("/task/validate", vs.handleValidate)
	s.Router().Post("/task/validate-agent", vs.handleValidateAgent)
	s.Router().Post("/task/validate-agent/judge", vs.handleJudgeAgent)
	return vs, nil
}

func (vs *ValidationServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	l := server.LoggerFromContext(r.Context(), vs.logger)

	var req ValidateTaskRequest
	if err := server.DecodeJsonBody(r, &req); err != nil {
		server.WriteJsonError(w, err, http.StatusBadRequest, l)
		return
	}
	l.Sugar().Infow("Validating task", zap.String("proofOfTask", req.ProofOfTask))

	verdict, err := vs.voter.Vote(r.Context(), req.ProofOfTask)
	if err != nil {
		writeError(w, struct{}{}, errorMessage(err, validationErrorMessage, false), l)
		return
	}
	l.Sugar().Infow("Vote",
		zap.String("validator", verdict.Validator),
		zap.Bool("approved", verdict.Approved),
	)
	server.WriteJsonResponse(w, http.StatusOK, &Response{
		Data:    &ValidateTaskData{Result: verdict.Approved},
		Message: TaskValidatedMessage,
	}, l)
}

func (vs *ValidationServer) handleValidateAgent(w http.ResponseWriter, r *http.Request) {
	vs.handleAgent(w, r, vs.voter.ValidateAgent, AgentValidatedMessage, strategyErrorMessage)
}

func (vs *ValidationServer) handleJudgeAgent(w http.ResponseWriter, r *http.Request) {
	vs.handleAgent(w, r, vs.voter.JudgeAgent, AgentJudgedMessage, judgeErrorMessage)
}

type agentValidateFunc func(ctx context.Context, req *validation.AgentValidationRequest) (*validation.Verdict, error)

func (vs *ValidationServer) handleAgent(
	w http.ResponseWriter,
	r *http.Request,
	validate agentValidateFunc,
	successMessage string,
	failureMessage string,
) {
	l := server.LoggerFromContext(r.Context(), vs.logger)

	var req ValidateAgentRequest
	if err := server.DecodeJsonBody(r, &req); err != nil {
		server.WriteJsonError(w, err, http.StatusBadRequest, l)
		return
	}
	l.Sugar().Infow("Validating agent response",
		zap.Int32("taskDefinitionId", req.TaskDefinitionId),
		zap.String("model", req.ModelName),
	)

	verdict, err := validate(r.Context(), &validation.AgentValidationRequest{
		Context: taskProof.AgentStrategyContext{
			Prices:    req.Prices,
			Portfolio: req.Portfolio,
			ModelName: req.ModelName,
		},
		TaskDefinitionId: req.TaskDefinitionId,
		AgentResponse:    req.AgentResponse,
	})
	if err != nil {
		writeError(w, &agentErrorData{
			TaskDefinitionId: req.TaskDefinitionId,
			ModelName:        req.ModelName,
		}, errorMessage(err, failureMessage, true), l)
		return
	}

	data := &ValidateAgentData{
		Result:           verdict.Approved,
		TaskDefinitionId: req.TaskDefinitionId,
		ModelName:        req.ModelName,
	}
	if verdict.Score != nil && verdict.Threshold != nil {
		data.ValidationDetails = &ValidationDetails{
			SimilarityScore: *verdict.Score,
			Threshold:       *verdict.Threshold,
			MeetsThreshold:  verdict.MeetsThreshold(),
		}
	}
	server.WriteJsonResponse(w, http.StatusOK, &Response{Data: data, Message: successMessage}, l)
}

func errorMessage(err error, fallback string, withCause bool) string {
	var inputErr *validation.ValidationInputError
	if errors.As(err, &inputErr) {
		return fmt.Sprintf("%s: %v", invalidInputMessage, inputErr)
	}
	if withCause {
		return fmt.Sprintf("%s: %v", fallback, err)
	}
	return fallback
}

func writeError(w http.ResponseWriter, data interface{}, message string, l *zap.Logger) {
	l.Sugar().Errorw("Validation error", zap.String("message", message))
	server.WriteJsonResponse(w, http.StatusInternalServerError, &ErrorResponse{
		Data:    data,
		Error:   true,
		Message: message,
	}, l)
}
