package exchange

import (
	"errors"
	"fmt"

	"github.com/barter-hub/barter-hub/internal/domain/image"
)

var (
	ErrNotFound           = errors.New("exchange not found")
	ErrUnauthorized       = errors.New("caller may not perform this action on the exchange")
	ErrItemNotAvailable   = errors.New("item is not available")
	ErrAlreadyRated       = errors.New("exchange already rated by this user")
	ErrContactsLocked     = errors.New("contacts are disclosed only after completion")
	ErrConcurrentUpdate   = errors.New("exchange was modified concurrently")
	ErrEmptyOffer         = errors.New("at least one item must be offered")
	ErrSelfTrade          = errors.New("cannot exchange with yourself")
	ErrOfferNotOwned      = fmt.Errorf("%w: offered item belongs to another user", ErrSelfTrade)
	ErrOfferedNotFound    = errors.New("offered item not found")
	ErrEmptyDescription   = errors.New("other item needs a description")
	ErrNothingToAdd       = errors.New("counter-offer adds no new items")
	ErrInvalidRating      = errors.New("rating must be between 1 and 10")
	ErrInvalidDecision    = errors.New("decision must be ACCEPT or REJECT")
	ErrMessageTooLong     = errors.New("message is too long")
	ErrImageCountExceeded = image.ErrTooMany
)

// ImageTooLargeError is reported once per oversize file.
type ImageTooLargeError = image.TooLargeError

// ValidationError wraps every input problem found before any write.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid joins errs into a ValidationError, or returns nil when errs are all nil.
func Invalid(errs ...error) error {
	err := errors.Join(errs...)
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

// InvalidStateTransitionError reports a transition that the current status forbids.
type InvalidStateTransitionError struct {
	Transition Transition
	Current    Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s exchange in status %s", e.Transition, e.Current)
}

func invalidState(t Transition, current Status) error {
	return &InvalidStateTransitionError{Transition: t, Current: current}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsInvalidState(err error) bool {
	var s *InvalidStateTransitionError
	return errors.As(err, &s)
}
