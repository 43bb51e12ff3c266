// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"strings"
)

// GenerationFailedMessage is the single message shown when sequence generation fails.
const GenerationFailedMessage = "Failed to generate the campaign sequence. Please check your configuration and try again."

var (
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrNoSteps              = errors.New("campaign has no steps")
)

// ErrCampaignNotFound is returned when no header row matches.
type ErrCampaignNotFound struct {
	CampaignID int64
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int64) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ValidationError carries every violation found in a draft.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func NewValidationError(violations []string) error {
	return &ValidationError{Violations: violations}
}

// GenerationError wraps any failure of the generation collaborator. Message is
// what the user sees; Err is for logs.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(err error) error {
	return &GenerationError{Message: GenerationFailedMessage, Err: err}
}

// PersistStage names the write that failed during a save.
type PersistStage string

const (
	StageHeader       PersistStage = "header"
	StageHeaderUpdate PersistStage = "header_update"
	StageDeleteSteps  PersistStage = "delete_steps"
	StageInsertSteps  PersistStage = "insert_steps"
)

// PersistenceError reports which write failed. StepsLost is set when existing
// steps were removed before the failure.
type PersistenceError struct {
	Stage      PersistStage
	CampaignID int64
	StepsLost  bool
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save campaign (%s): %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StateError is returned when a lifecycle operation is not allowed in the
// current state.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while draft is in %q state", e.Op, e.State)
}

func NewStateError(op, state string) error {
	return &StateError{Op: op, State: state}
}
