package domain

import "errors"

// Sentinel errors for the instance domain. Use errors.Is() to check these.
var (
	// ErrInstanceNotFound indicates no transition was ever recorded for the instance.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInvalidServiceID indicates the service instance id violates domain constraints.
	ErrInvalidServiceID = errors.New("invalid service id")

	// ErrIllegalTransition indicates a transition the lifecycle state machine cannot make.
	ErrIllegalTransition = errors.New("illegal lifecycle transition")

	// ErrTransitionAlreadyRecorded indicates the transition id is already stored.
	ErrTransitionAlreadyRecorded = errors.New("transition already recorded")
)
