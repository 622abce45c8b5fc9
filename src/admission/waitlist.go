package admission

import (
	"context"
	"errors"
	"eventadmission/src/models"
	"eventadmission/src/models/scopes"
	"eventadmission/src/types"

	"gorm.io/gorm"
)

// PromoteWaitlist approves waitlisted registrations of the event, oldest first, while
// seats are free. Each promotion is its own transaction that re-checks capacity under
// the event lock, so concurrent triggers cannot overshoot maxAttendees.
func (e *Engine) PromoteWaitlist(ctx context.Context, eventID uint) (int, error) {
	promoted := 0
	for {
		done := false
		err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
			done = true
			event, err := lockEvent(tx, eventID)
			if err != nil {
				return err
			}
			if event.Status == types.EVENT_CANCELLED {
				return nil
			}
			full, err := eventFull(tx, event)
			if err != nil || full {
				return err
			}

			var next models.Registration
			err = tx.Scopes(scopes.ForUpdate, scopes.QueueOrder).
				Where("event_id = ? AND status = ?", eventID, types.REGISTRATION_WAITLISTED).
				First(&next).
				Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			if err := moveRegistration(tx, &next, types.REGISTRATION_APPROVED, map[string]any{"approved_at": e.now()}); err != nil {
				return err
			}
			done = false
			return e.notify(tx, box, next.UserID, types.NOTIFY_REGISTRATION_PROMOTED, types.JSONB{
				"registration_id": next.ID,
				"event_id":        eventID,
			})
		})
		if err != nil {
			return promoted, err
		}
		if done {
			return promoted, nil
		}
		promoted++
	}
}
