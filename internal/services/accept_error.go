package services

import (
	"errors"
	"fmt"
)

// ErrPartialAccept matches any *AcceptError.
var ErrPartialAccept = errors.New("friend request accept did not complete")

// Accept steps reported in AcceptError.Step.
const (
	AcceptStepCreateFriendship = "create_friendship"
	AcceptStepMarkAccepted     = "mark_accepted"
	AcceptStepCommit           = "commit"
)

// AcceptError reports which step of an accept failed. The surrounding
// transaction is rolled back, so neither the friendship nor the status
// change is persisted.
type AcceptError struct {
	Step string
	Err  error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("accepting friend request (%s): %v", e.Step, e.Err)
}

func (e *AcceptError) Unwrap() []error {
	return []error{ErrPartialAccept, e.Err}
}
