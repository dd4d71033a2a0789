package mint

import (
	"errors"
	"fmt"
)

// ErrInProgress is returned when a mint is requested while another is
// running.
var ErrInProgress = errors.New("a mint is already in progress")

// Stage names the payload a publish failure happened on.
type Stage string

const (
	StageImage    Stage = "image"
	StageMetadata Stage = "metadata"
)

// ValidationError means there was nothing valid to mint. No external call was
// made.
type ValidationError struct {
	err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("nothing to mint: %s", e.err)
}

func (e ValidationError) Unwrap() error {
	return e.err
}

// PublishError is a content store failure.
type PublishError struct {
	Stage Stage
	err   error
}

func (e PublishError) Error() string {
	return fmt.Sprintf("publishing %s: %s", e.Stage, e.err)
}

func (e PublishError) Unwrap() error {
	return e.err
}

// SubmissionError is a ledger rejection or failure.
type SubmissionError struct {
	err error
}

func (e SubmissionError) Error() string {
	return fmt.Sprintf("submitting mint: %s", e.err)
}

func (e SubmissionError) Unwrap() error {
	return e.err
}
