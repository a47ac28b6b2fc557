package execution

import (
	"errors"
	"fmt"
)

const (
	StageFetching   = "fetching"
	StageComputing  = "computing"
	StageSigning    = "signing"
	StageSubmitting = "submitting"
)

const (
	CollaboratorPriceSource = "price_source"
	CollaboratorAgent       = "agent"
	CollaboratorAggregator  = "aggregator"
)

// StageError tags a failure with the coordinator stage that produced it.
// Stages after a failed one never run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// UpstreamError marks a failed call to an external collaborator.
type UpstreamError struct {
	Collaborator string
	Err          error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, or "" when err carries none.
func FailedStage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// FailedCollaborator returns the collaborator recorded in err, or "".
func FailedCollaborator(err error) string {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Collaborator
	}
	return ""
}
