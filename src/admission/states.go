package admission

import (
	"eventadmission/src/types"
	"fmt"
	"slices"
)

type transitions[S ~string] map[S][]S

func (t transitions[S]) check(from, to S) error {
	if slices.Contains(t[from], to) {
		return nil
	}
	return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidStateTransition)
}

var orderTransitions = transitions[types.OrderStatus]{
	types.ORDER_PENDING:        {types.ORDER_PAID, types.ORDER_CANCELLED},
	types.ORDER_PAID:           {types.ORDER_REFUND_PENDING},
	types.ORDER_REFUND_PENDING: {types.ORDER_REFUNDED},
}

var registrationTransitions = transitions[types.RegistrationStatus]{
	types.REGISTRATION_PENDING_PAYMENT: {types.REGISTRATION_PENDING, types.REGISTRATION_CANCELLED},
	types.REGISTRATION_PENDING: {
		types.REGISTRATION_APPROVED,
		types.REGISTRATION_WAITLISTED,
		types.REGISTRATION_REJECTED,
		types.REGISTRATION_CANCELLED,
	},
	types.REGISTRATION_WAITLISTED: {types.REGISTRATION_APPROVED, types.REGISTRATION_REJECTED, types.REGISTRATION_CANCELLED},
	types.REGISTRATION_APPROVED:   {types.REGISTRATION_CANCELLED},
}

var volunteerTransitions = transitions[types.VolunteerStatus]{
	types.VOLUNTEER_APPLIED:  {types.VOLUNTEER_APPROVED, types.VOLUNTEER_REJECTED, types.VOLUNTEER_CANCELLED},
	types.VOLUNTEER_APPROVED: {types.VOLUNTEER_CANCELLED},
}

var inviteTransitions = transitions[types.InviteStatus]{
	types.INVITE_PENDING: {types.INVITE_REDEEMED, types.INVITE_INVALID},
}
