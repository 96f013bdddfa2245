package common

import (
	"errors"
	"fmt"
)

// ValidationError is raised before any network call is made; local state is
// untouched when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// NoRecipientError means a send had no explicit receiver and no peer is
// currently selected.
type NoRecipientError struct{}

func (e *NoRecipientError) Error() string {
	return "no recipient: no receiver given and no conversation selected"
}

// FetchError wraps a transport or server failure while loading message
// history. The local list for the peer is left as it was.
type FetchError struct {
	PeerID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch history for %s: %v", e.PeerID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError wraps a transport or server failure while sending a message.
type SendError struct {
	ReceiverID string
	Err        error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.ReceiverID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// RollbackError reports an optimistic action whose request failed; by the
// time the caller sees it, local state has been restored to the pre-action
// snapshot.
type RollbackError struct {
	Action   string
	TargetID string
	Err      error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%s %s failed, local state reverted: %v", e.Action, e.TargetID, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// ErrActionInFlight rejects a second optimistic toggle on a target while the
// first is still unresolved.
var ErrActionInFlight = errors.New("action already in flight for this target")

func IsValidation(err error) bool {
	var ve *ValidationError
	var nr *NoRecipientError
	return errors.As(err, &ve) || errors.As(err, &nr)
}
