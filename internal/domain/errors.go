package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrConflictingRequest      = errors.New("conflicting request")
	ErrReservationNotConfirmed = errors.New("reservation not confirmed")
	ErrDuplicateCommission     = errors.New("duplicate commission")
	ErrCommissionLocked        = errors.New("commission locked")
	ErrNotApproved             = errors.New("not approved")
	ErrOutOfOrder              = errors.New("stage out of order")

	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrAllocationExceeded = errors.New("distribution allocation exceeds 100 percent")
)

// TransitionError reports a rejected state change. Kind is one of the sentinel
// errors above and is what errors.Is matches against.
type TransitionError struct {
	Kind   error
	Entity string
	ID     int32
	From   string
	To     string
	Detail string
}

func (e *TransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d: cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Kind != nil {
		fmt.Fprintf(&b, " (%s)", e.Kind)
	}
	return b.String()
}

func (e *TransitionError) Unwrap() error { return e.Kind }

func transitionError(kind error, entity string, id int32, from, to, detail string) error {
	return &TransitionError{Kind: kind, Entity: entity, ID: id, From: from, To: to, Detail: detail}
}

// ValidationError tags msg as a caller input failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// NotFoundError tags a missing entity lookup.
func NotFoundError(entity string, id int32) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
