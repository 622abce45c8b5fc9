package admission

import (
	"context"
	"eventadmission/src/models"
	"eventadmission/src/models/scopes"
	"eventadmission/src/types"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

type EventInput struct {
	Title                string
	About                *string
	Location             string
	StartsAt             time.Time
	RegistrationDeadline *time.Time
	MaxAttendees         *uint
	RequireApproval      bool
	RegistrationOpen     bool
	CreatedBy            uint
}

type TicketTypeInput struct {
	Name        string
	Price       int64
	Currency    string
	MaxQuantity *uint
}

func (e *Engine) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	event := models.Event{
		Title:                in.Title,
		About:                in.About,
		Location:             in.Location,
		StartsAt:             in.StartsAt.UTC(),
		RegistrationDeadline: in.RegistrationDeadline,
		MaxAttendees:         in.MaxAttendees,
		RequireApproval:      in.RequireApproval,
		RegistrationOpen:     in.RegistrationOpen,
		CreatedBy:            in.CreatedBy,
		Status:               types.EVENT_ACTIVE,
	}
	if err := e.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (e *Engine) GetEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	var event models.Event
	err := e.db.WithContext(ctx).
		Preload("TicketTypes", "active = ?", true).
		Preload("VolunteerRoles").
		First(&event, eventID).
		Error
	if err != nil {
		return nil, notFound(err, "event", eventID)
	}
	return &event, nil
}

func (e *Engine) CreateTicketType(ctx context.Context, eventID uint, in TicketTypeInput) (*models.TicketType, error) {
	var event models.Event
	if err := e.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		return nil, notFound(err, "event", eventID)
	}
	currency := in.Currency
	if currency == "" {
		currency = e.policy.Currency
	}
	ticketType := models.TicketType{
		EventID:     event.ID,
		Name:        in.Name,
		Price:       in.Price,
		Currency:    currency,
		MaxQuantity: in.MaxQuantity,
		Active:      true,
	}
	if err := e.db.WithContext(ctx).Create(&ticketType).Error; err != nil {
		return nil, err
	}
	return &ticketType, nil
}

func (e *Engine) AddPriceTier(ctx context.Context, ticketTypeID uint, threshold uint, price int64) (*models.PriceTier, error) {
	var ticketType models.TicketType
	if err := e.db.WithContext(ctx).First(&ticketType, ticketTypeID).Error; err != nil {
		return nil, notFound(err, "ticket type", ticketTypeID)
	}
	tier := models.PriceTier{
		TicketTypeID: ticketType.ID,
		Threshold:    threshold,
		Price:        price,
		Active:       true,
	}
	if err := e.db.WithContext(ctx).Create(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func (e *Engine) SetTicketTypeActive(ctx context.Context, ticketTypeID uint, active bool) (*models.TicketType, error) {
	var ticketType models.TicketType
	if err := e.db.WithContext(ctx).First(&ticketType, ticketTypeID).Error; err != nil {
		return nil, notFound(err, "ticket type", ticketTypeID)
	}
	if err := e.db.WithContext(ctx).Model(&ticketType).Update("active", active).Error; err != nil {
		return nil, err
	}
	return &ticketType, nil
}

// ListTicketTypes returns the event's active ticket types with their availability.
// It reads without locks; the numbers are a snapshot.
func (e *Engine) ListTicketTypes(ctx context.Context, eventID uint) ([]models.TicketType, error) {
	ticketTypes := []models.TicketType{}
	err := e.db.WithContext(ctx).
		Preload("PriceTiers", func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true).Order("threshold asc")
		}).
		Where("event_id = ? AND active = ?", eventID, true).
		Order("id asc").
		Find(&ticketTypes).
		Error
	if err != nil {
		return nil, err
	}
	for i := range ticketTypes {
		ticketTypes[i].Stats = ticketStats(&ticketTypes[i])
	}
	return ticketTypes, nil
}

func ticketStats(t *models.TicketType) *models.TicketTypeStats {
	stats := &models.TicketTypeStats{
		Sold:        t.CurrentQuantity,
		ActivePrice: ResolvePrice(t.Price, t.PriceTiers, t.CurrentQuantity),
	}
	if t.MaxQuantity != nil {
		remaining := uint(0)
		if *t.MaxQuantity > t.CurrentQuantity {
			remaining = *t.MaxQuantity - t.CurrentQuantity
		}
		stats.Remaining = &remaining
		stats.SoldOut = remaining == 0
	}
	return stats
}

func (e *Engine) SetRegistrationWindow(ctx context.Context, eventID uint, open bool, deadline *time.Time) (*models.Event, error) {
	var event *models.Event
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var err error
		if event, err = lockEvent(tx, eventID); err != nil {
			return err
		}
		if open && event.Status == types.EVENT_CANCELLED {
			return fmt.Errorf("event %d is cancelled: %w", event.ID, ErrInvalidStateTransition)
		}
		updates := map[string]any{"registration_open": open}
		if deadline != nil {
			updates["registration_deadline"] = deadline.UTC()
		}
		return tx.Model(&models.Event{}).Where("id = ?", event.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return e.GetEvent(ctx, eventID)
}

// AdjustCapacity changes maxAttendees (nil is unlimited). Existing approvals are
// never revoked when capacity shrinks; growth wakes the waitlist.
func (e *Engine) AdjustCapacity(ctx context.Context, eventID uint, maxAttendees *uint) (*models.Event, error) {
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Event{}).
			Where("id = ?", event.ID).
			Update("max_attendees", maxAttendees).
			Error; err != nil {
			return err
		}
		grew := maxAttendees == nil || (event.MaxAttendees != nil && *maxAttendees > *event.MaxAttendees)
		if grew {
			box.promoteEvent(event.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.GetEvent(ctx, eventID)
}

// CancelEvent closes the event and cascades: unpaid orders are cancelled, paid
// orders are refunded, and live registrations, volunteer applications and unused
// invites are cancelled or invalidated.
func (e *Engine) CancelEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if event.Status == types.EVENT_CANCELLED {
			return nil
		}
		return tx.Model(&models.Event{}).Where("id = ?", event.ID).Updates(map[string]any{
			"status":            types.EVENT_CANCELLED,
			"registration_open": false,
			"cancelled_at":      e.now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	// no new orders or registrations can start from here, so the cascade can go order by order
	var orderIDs []uint
	if err := e.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("event_id = ?", eventID).
		Scopes(scopes.WithStatus(types.ORDER_PENDING, types.ORDER_PAID)).
		Pluck("id", &orderIDs).Error; err != nil {
		return nil, err
	}
	for _, orderID := range orderIDs {
		if err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
			order, err := lockOrder(tx, orderID)
			if err != nil {
				return err
			}
			switch order.Status {
			case types.ORDER_PENDING:
				return e.cancelOrderTx(tx, box, order, "event cancelled")
			case types.ORDER_PAID:
				box.refunds = append(box.refunds, order.ID)
			}
			return nil
		}); err != nil {
			log.Printf("[Event] Cascading cancel of event %d to order %d failed: %s\n", eventID, orderID, err.Error())
		}
	}

	err = e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		if _, err := lockEvent(tx, eventID); err != nil {
			return err
		}
		now := e.now()

		var registrations []models.Registration
		if err := tx.Scopes(scopes.ForUpdate).
			Where("event_id = ?", eventID).
			Scopes(scopes.WithStatus(
				types.REGISTRATION_PENDING_PAYMENT,
				types.REGISTRATION_PENDING,
				types.REGISTRATION_APPROVED,
				types.REGISTRATION_WAITLISTED,
			)).
			Find(&registrations).Error; err != nil {
			return err
		}
		for i := range registrations {
			if err := moveRegistration(tx, &registrations[i], types.REGISTRATION_CANCELLED, map[string]any{"cancelled_at": now}); err != nil {
				return err
			}
			if err := e.notify(tx, box, registrations[i].UserID, types.NOTIFY_EVENT_CANCELLED, types.JSONB{
				"event_id":        eventID,
				"registration_id": registrations[i].ID,
			}); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.VolunteerRegistration{}).
			Where("event_id = ?", eventID).
			Scopes(scopes.WithStatus(types.VOLUNTEER_APPLIED, types.VOLUNTEER_APPROVED)).
			Update("status", types.VOLUNTEER_CANCELLED).Error; err != nil {
			return err
		}

		orderIDs := tx.Model(&models.Order{}).Select("id").Where("event_id = ?", eventID)
		return tx.Model(&models.OrderInvite{}).
			Where("order_id IN (?) AND status = ?", orderIDs, types.INVITE_PENDING).
			Updates(map[string]any{"status": types.INVITE_INVALID, "invalidated_at": now}).
			Error
	})
	if err != nil {
		return nil, err
	}
	return e.GetEvent(ctx, eventID)
}

func (e *Engine) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications := []models.Notification{}
	err := e.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&notifications).
		Error
	return notifications, err
}
