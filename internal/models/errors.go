package models

import "fmt"

// Stages at which an upstream collaborator can fail.
const (
	StageEmbed = "embedding"
	StageChat  = "chat"
)

// UpstreamError reports a failure of an external collaborator (embedding
// or chat provider). It is propagated without retry; Stage tells the
// caller which collaborator failed so it can decide on retry itself.
type UpstreamError struct {
	Stage string
	Err   error
}

// NewUpstreamError wraps err as a failure of the given stage.
func NewUpstreamError(stage string, err error) *UpstreamError {
	return &UpstreamError{Stage: stage, Err: err}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
