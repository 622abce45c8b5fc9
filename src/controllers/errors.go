package controllers

import (
	"errors"
	"eventadmission/src/admission"
	"eventadmission/src/common"
	"eventadmission/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	reason string
}

// Order matters: the first match wins.
var errorMappings = []errorMapping{
	{admission.ErrCapacityExceeded, http.StatusConflict, "sold_out"},
	{admission.ErrRoleFull, http.StatusConflict, "role_full"},
	{admission.ErrInviteLimitReached, http.StatusConflict, "invite_limit_reached"},
	{admission.ErrDuplicateRegistration, http.StatusConflict, "duplicate_registration"},
	{admission.ErrDuplicateApplication, http.StatusConflict, "duplicate_application"},
	{admission.ErrAlreadyRedeemed, http.StatusConflict, "already_redeemed"},
	{admission.ErrAmountMismatch, http.StatusConflict, "amount_mismatch"},
	{admission.ErrInvalidStateTransition, http.StatusConflict, "invalid_state"},
	{admission.ErrInvalidInvite, http.StatusGone, "invalid_invite"},
	{admission.ErrRegistrationClosed, http.StatusUnprocessableEntity, "registration_closed"},
	{admission.ErrDeadlinePassed, http.StatusUnprocessableEntity, "deadline_passed"},
	{admission.ErrTicketTypeInactive, http.StatusUnprocessableEntity, "ticket_type_inactive"},
	{admission.ErrTicketRequired, http.StatusUnprocessableEntity, "ticket_required"},
	{admission.ErrNotCheckedIn, http.StatusUnprocessableEntity, "not_checked_in"},
	{admission.ErrNotCompleted, http.StatusUnprocessableEntity, "not_completed"},
	{admission.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{common.ErrMalformedCallback, http.StatusBadRequest, "malformed_callback"},
	{admission.ErrForbidden, http.StatusForbidden, "forbidden"},
	{admission.ErrNotFound, http.StatusNotFound, "not_found"},
	{admission.ErrPaymentsUnavailable, http.StatusServiceUnavailable, "payments_unavailable"},
}

// ErrorStatus maps an engine error to its HTTP status and machine readable reason.
func ErrorStatus(err error) (int, string) {
	if m, ok := lookup(err); ok {
		return m.status, m.reason
	}
	return http.StatusInternalServerError, "internal_error"
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// Fail writes the error response for a controller result. Known engine errors use
// their mapping; other client errors keep the controller status; the rest are logged
// and hidden behind a 500.
func Fail(ctx *gin.Context, status int, err error) {
	if m, ok := lookup(err); ok {
		ctx.AbortWithStatusJSON(m.status, gin.H{"error": err.Error(), "reason": m.reason})
		return
	}
	if status >= 400 && status < 500 {
		ctx.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "reason": clientReason(status)})
		return
	}
	log.Printf("[API] %s %s failed: %s\n", ctx.Request.Method, ctx.FullPath(), err.Error())
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "reason": "internal_error"})
}

func clientReason(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	}
	return "validation_failed"
}

func Actor(ctx *gin.Context) admission.Actor {
	return admission.Actor{
		UserID: ctx.GetUint("id"),
		Admin:  ctx.GetString("role") == types.ROLE_ADMIN,
	}
}
