package admission

import (
	"context"
	"errors"
	"eventadmission/src/models"
	"eventadmission/src/models/scopes"
	"eventadmission/src/types"
	"fmt"
	"maps"

	"gorm.io/gorm"
)

type RegisterInput struct {
	EventID      uint
	UserID       uint
	ContactEmail string
}

type ReviewInput struct {
	RegistrationID uint
	Decision       types.Decision
	Note           string
	ReviewerID     uint
}

type RegistrationFilter struct {
	EventID uint
	UserID  uint
	Status  types.RegistrationStatus
}

func lockEvent(tx *gorm.DB, eventID uint) (*models.Event, error) {
	var event models.Event
	if err := tx.Scopes(scopes.ForUpdate).First(&event, eventID).Error; err != nil {
		return nil, notFound(err, "event", eventID)
	}
	return &event, nil
}

func ensureNoActiveRegistration(tx *gorm.DB, eventID uint, userID uint) error {
	var count int64
	if err := tx.Model(&models.Registration{}).
		Where("event_id = ? AND user_id = ? AND status <> ?", eventID, userID, types.REGISTRATION_CANCELLED).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("user %d at event %d: %w", userID, eventID, ErrDuplicateRegistration)
	}
	return nil
}

// createRegistration relies on the partial unique index to catch a racing insert
// that slipped past ensureNoActiveRegistration.
func createRegistration(tx *gorm.DB, registration *models.Registration) error {
	if err := tx.Create(registration).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %d at event %d: %w", registration.UserID, registration.EventID, ErrDuplicateRegistration)
		}
		return err
	}
	return nil
}

// eventFull reports whether the approved attendee count has reached maxAttendees.
// The caller must hold the event row lock.
func eventFull(tx *gorm.DB, event *models.Event) (bool, error) {
	if event.MaxAttendees == nil {
		return false, nil
	}
	var approved int64
	if err := tx.Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", event.ID, types.REGISTRATION_APPROVED).
		Count(&approved).Error; err != nil {
		return false, err
	}
	return approved >= int64(*event.MaxAttendees), nil
}

// autoAdmitTx admits a PENDING registration right away unless the event wants a reviewer.
func (e *Engine) autoAdmitTx(tx *gorm.DB, box *outbox, event *models.Event, registration *models.Registration) error {
	if event.RequireApproval {
		return nil
	}
	return e.admitTx(tx, box, event, registration, nil)
}

// admitTx approves the registration, or waitlists it when the event is full.
func (e *Engine) admitTx(tx *gorm.DB, box *outbox, event *models.Event, registration *models.Registration, fields map[string]any) error {
	full, err := eventFull(tx, event)
	if err != nil {
		return err
	}

	updates := map[string]any{}
	maps.Copy(updates, fields)
	to, kind := types.REGISTRATION_APPROVED, types.NOTIFY_REGISTRATION_APPROVED
	if full {
		to, kind = types.REGISTRATION_WAITLISTED, types.NOTIFY_REGISTRATION_WAITLISTED
	} else {
		updates["approved_at"] = e.now()
	}
	if err := moveRegistration(tx, registration, to, updates); err != nil {
		return err
	}
	return e.notify(tx, box, registration.UserID, kind, types.JSONB{
		"registration_id": registration.ID,
		"event_id":        event.ID,
	})
}

// Register is the entry point for events sold without tickets: free or approval based.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*models.Registration, error) {
	var registration models.Registration
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		event, err := lockEvent(tx, in.EventID)
		if err != nil {
			return err
		}
		if err := e.checkOpen(event); err != nil {
			return err
		}

		var ticketTypes int64
		if err := tx.Model(&models.TicketType{}).
			Where("event_id = ? AND active = ?", event.ID, true).
			Count(&ticketTypes).Error; err != nil {
			return err
		}
		if ticketTypes > 0 {
			return fmt.Errorf("event %d: %w", event.ID, ErrTicketRequired)
		}
		if err := ensureNoActiveRegistration(tx, event.ID, in.UserID); err != nil {
			return err
		}

		registration = models.Registration{
			EventID:      event.ID,
			UserID:       in.UserID,
			Status:       types.REGISTRATION_PENDING,
			ContactEmail: in.ContactEmail,
			RegisteredAt: e.now(),
		}
		if err := createRegistration(tx, &registration); err != nil {
			return err
		}
		return e.autoAdmitTx(tx, box, event, &registration)
	})
	if err != nil {
		return nil, err
	}
	return &registration, nil
}

// ReviewRegistration applies an admin decision. Approval re-runs the capacity check:
// a PENDING registration is waitlisted when the event is full, a WAITLISTED one
// fails with ErrCapacityExceeded.
func (e *Engine) ReviewRegistration(ctx context.Context, in ReviewInput) (*models.Registration, error) {
	var registration models.Registration
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var current models.Registration
		if err := tx.First(&current, in.RegistrationID).Error; err != nil {
			return notFound(err, "registration", in.RegistrationID)
		}
		event, err := lockEvent(tx, current.EventID)
		if err != nil {
			return err
		}
		if err := tx.Scopes(scopes.ForUpdate).First(&registration, in.RegistrationID).Error; err != nil {
			return notFound(err, "registration", in.RegistrationID)
		}

		now := e.now()
		review := map[string]any{
			"reviewed_by": in.ReviewerID,
			"reviewed_at": now,
			"review_note": in.Note,
		}

		switch in.Decision {
		case types.DECISION_APPROVE:
			switch registration.Status {
			case types.REGISTRATION_PENDING:
				return e.admitTx(tx, box, event, &registration, review)
			case types.REGISTRATION_WAITLISTED:
				full, err := eventFull(tx, event)
				if err != nil {
					return err
				}
				if full {
					return fmt.Errorf("event %d: %w", event.ID, ErrCapacityExceeded)
				}
				review["approved_at"] = now
				if err := moveRegistration(tx, &registration, types.REGISTRATION_APPROVED, review); err != nil {
					return err
				}
				return e.notify(tx, box, registration.UserID, types.NOTIFY_REGISTRATION_APPROVED, types.JSONB{
					"registration_id": registration.ID,
					"event_id":        event.ID,
				})
			default:
				return moveRegistration(tx, &registration, types.REGISTRATION_APPROVED, review)
			}
		case types.DECISION_REJECT:
			if err := moveRegistration(tx, &registration, types.REGISTRATION_REJECTED, review); err != nil {
				return err
			}
			return e.notify(tx, box, registration.UserID, types.NOTIFY_REGISTRATION_REJECTED, types.JSONB{
				"registration_id": registration.ID,
				"event_id":        event.ID,
				"note":            in.Note,
			})
		default:
			return fmt.Errorf("decision %q: %w", in.Decision, ErrInvalidStateTransition)
		}
	})
	if err != nil {
		return nil, err
	}
	return e.GetRegistration(ctx, in.RegistrationID, Actor{Admin: true})
}

// CancelRegistration cancels a registration. A registration still waiting on its
// order takes the order down with it; cancelling an APPROVED one frees a seat for
// the waitlist.
func (e *Engine) CancelRegistration(ctx context.Context, registrationID uint, actor Actor) (*models.Registration, error) {
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var current models.Registration
		if err := tx.First(&current, registrationID).Error; err != nil {
			return notFound(err, "registration", registrationID)
		}
		if !actor.owns(current.UserID) {
			return fmt.Errorf("registration %d: %w", registrationID, ErrForbidden)
		}

		var order *models.Order
		if current.OrderID != nil && current.Status == types.REGISTRATION_PENDING_PAYMENT {
			var err error
			if order, err = lockOrder(tx, *current.OrderID); err != nil {
				return err
			}
		}
		if _, err := lockEvent(tx, current.EventID); err != nil {
			return err
		}

		var registration models.Registration
		if err := tx.Scopes(scopes.ForUpdate).First(&registration, registrationID).Error; err != nil {
			return notFound(err, "registration", registrationID)
		}

		switch registration.Status {
		case types.REGISTRATION_CANCELLED:
			return nil
		case types.REGISTRATION_PENDING_PAYMENT:
			if order != nil && order.Status == types.ORDER_PENDING {
				return e.cancelOrderTx(tx, box, order, "registration cancelled")
			}
		}

		wasApproved := registration.Status == types.REGISTRATION_APPROVED
		if err := moveRegistration(tx, &registration, types.REGISTRATION_CANCELLED, map[string]any{"cancelled_at": e.now()}); err != nil {
			return err
		}
		if wasApproved {
			box.promoteEvent(registration.EventID)
		}
		if actor.UserID != registration.UserID {
			return e.notify(tx, box, registration.UserID, types.NOTIFY_REGISTRATION_CANCELLED, types.JSONB{
				"registration_id": registration.ID,
				"event_id":        registration.EventID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.GetRegistration(ctx, registrationID, actor)
}

func (e *Engine) GetRegistration(ctx context.Context, registrationID uint, actor Actor) (*models.Registration, error) {
	var registration models.Registration
	if err := e.db.WithContext(ctx).First(&registration, registrationID).Error; err != nil {
		return nil, notFound(err, "registration", registrationID)
	}
	if !actor.owns(registration.UserID) {
		return nil, fmt.Errorf("registration %d: %w", registrationID, ErrForbidden)
	}
	return &registration, nil
}

func (e *Engine) ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]models.Registration, error) {
	query := e.db.WithContext(ctx).Model(&models.Registration{})
	if filter.EventID != 0 {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Scopes(scopes.WithStatus(filter.Status))
	}

	registrations := []models.Registration{}
	err := query.Scopes(scopes.QueueOrder).Find(&registrations).Error
	return registrations, err
}

// WaitlistPosition is the 1-based place of a WAITLISTED registration in its event's
// queue, or 0 when it is not waitlisted.
func (e *Engine) WaitlistPosition(ctx context.Context, registrationID uint) (int, error) {
	var registration models.Registration
	if err := e.db.WithContext(ctx).First(&registration, registrationID).Error; err != nil {
		return 0, notFound(err, "registration", registrationID)
	}
	if registration.Status != types.REGISTRATION_WAITLISTED {
		return 0, nil
	}

	var ahead int64
	err := e.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", registration.EventID, types.REGISTRATION_WAITLISTED).
		Where("registered_at < ? OR (registered_at = ? AND id < ?)", registration.RegisteredAt, registration.RegisteredAt, registration.ID).
		Count(&ahead).
		Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}
