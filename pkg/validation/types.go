package validation

import (
	"fmt"

	"github.com/jinmel/avs-examples/pkg/taskProof"
)

const (
	ValidatorBounds     = "bounds"
	ValidatorSimilarity = "similarity"
	ValidatorJudge      = "judge"
)

// Verdict is the outcome of judging one task result. Score and Threshold are
// set only by validators that compute a score.
type Verdict struct {
	Validator string
	Approved  bool
	Score     *float64
	Threshold *float64
	Reason    string
}

// MeetsThreshold reports whether the score reached the threshold,
// independent of any other approval condition.
func (v *Verdict) MeetsThreshold() bool {
	if v == nil || v.Score == nil || v.Threshold == nil {
		return false
	}
	return *v.Score >= *v.Threshold
}

// ValidationInputError means the task could not be judged. It is never a
// reject vote.
type ValidationInputError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationInputError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %v", e.Field, e.Value, e.Err)
}

func (e *ValidationInputError) Unwrap() error {
	return e.Err
}

type AgentValidationRequest struct {
	Context          taskProof.AgentStrategyContext
	TaskDefinitionId int32
	AgentResponse    string
}
