package admission

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateRegistration  = errors.New("duplicate registration")
	ErrAlreadyRedeemed        = errors.New("invite already redeemed")
	ErrInvalidInvite          = errors.New("invalid invite")
	ErrRoleFull               = errors.New("volunteer role is full")
	ErrRegistrationClosed     = errors.New("registration is closed")
	ErrDeadlinePassed         = errors.New("registration deadline has passed")
	ErrTicketTypeInactive     = errors.New("ticket type is not on sale")
	ErrTicketRequired         = errors.New("event requires a ticket purchase")
	ErrInviteLimitReached     = errors.New("no seats left to invite")
	ErrAmountMismatch         = errors.New("payment amount does not match order total")
	ErrDuplicateApplication   = errors.New("duplicate volunteer application")
	ErrNotCheckedIn           = errors.New("volunteer has not checked in")
	ErrNotCompleted           = errors.New("volunteer has not completed the role")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrPaymentsUnavailable    = errors.New("payment provider is not configured")
)

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}
