package domain

import (
	"errors"
	"fmt"
)

// Status is the review state of a time entry.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ErrInvalidTransition is returned for any status change other than
// PENDING to APPROVED or PENDING to REJECTED.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned when parsing a status that does not exist.
var ErrUnknownStatus = errors.New("unknown status")

// ParseStatus converts a stored or requested value into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected:
		return true
	case StatusPending:
		return false
	default:
		return true
	}
}

// IsLive reports whether an entry in this status occupies its time slot.
// Rejected entries never block a new submission.
func (s Status) IsLive() bool {
	switch s {
	case StatusPending, StatusApproved:
		return true
	case StatusRejected:
		return false
	default:
		return false
	}
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved, StatusRejected:
		return false
	default:
		return false
	}
}

// Transition returns next if the move is legal.
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// InitialStatus is the status every record of a submission starts in.
func InitialStatus(autoApprove bool) Status {
	if autoApprove {
		return StatusApproved
	}
	return StatusPending
}

// LiveStatuses are the statuses considered by the overlap check.
func LiveStatuses() []Status {
	return []Status{StatusPending, StatusApproved}
}
