package brief

import (
	"errors"

	"meetprep/internal/models"
)

var (
	// ErrUnauthenticated means no caller identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotConnected means the user has not granted Google access.
	ErrNotConnected = errors.New("google account not connected")
)

var pipelineMessages = map[models.Feature]string{
	models.FeatureMeetingBrief:   "Failed to generate meeting brief. Please try again later.",
	models.FeaturePriorityDigest: "Failed to generate priority digest. Please try again later.",
	models.FeatureInboxSummary:   "Failed to generate inbox summary. Please try again later.",
}

// PipelineError is returned when a run fails after the preconditions held.
// Error() is safe to show to the user; the cause is only reachable through
// Unwrap.
type PipelineError struct {
	Feature models.Feature
	Err     error
}

func (e *PipelineError) Error() string {
	if msg, ok := pipelineMessages[e.Feature]; ok {
		return msg
	}
	return "Briefing failed. Please try again later."
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
