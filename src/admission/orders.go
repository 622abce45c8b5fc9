package admission

import (
	"context"
	"eventadmission/src/models"
	"eventadmission/src/models/scopes"
	"eventadmission/src/types"
	"fmt"
	"log"

	"gorm.io/gorm"
)

type OrderRequest struct {
	UserID       uint
	EventID      uint
	TicketTypeID uint
	Quantity     uint
	ContactEmail string
}

// CreateOrder reserves inventory and opens a PENDING order with a price snapshot. Under
// the implicit seat policy the purchaser also gets a PENDING_PAYMENT registration.
func (e *Engine) CreateOrder(ctx context.Context, req OrderRequest) (*models.Order, error) {
	if req.Quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	var order models.Order
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var event models.Event
		if err := tx.First(&event, req.EventID).Error; err != nil {
			return notFound(err, "event", req.EventID)
		}
		if err := e.checkOpen(&event); err != nil {
			return err
		}

		var ticketType models.TicketType
		if err := tx.First(&ticketType, req.TicketTypeID).Error; err != nil {
			return notFound(err, "ticket type", req.TicketTypeID)
		}
		if ticketType.EventID != event.ID {
			return fmt.Errorf("ticket type %d for event %d: %w", ticketType.ID, event.ID, ErrNotFound)
		}

		implicit := e.policy.SeatPolicy != types.SEAT_POLICY_EXPLICIT
		if implicit {
			if err := ensureNoActiveRegistration(tx, event.ID, req.UserID); err != nil {
				return err
			}
		}

		now := e.now()
		expiresAt := now.Add(e.policy.PaymentWindow)
		reservation, unitPrice, err := e.reserveTx(tx, ticketType.ID, req.Quantity, expiresAt)
		if err != nil {
			return err
		}

		currency := ticketType.Currency
		if currency == "" {
			currency = e.policy.Currency
		}
		order = models.Order{
			UserID:        req.UserID,
			EventID:       event.ID,
			TicketTypeID:  ticketType.ID,
			Quantity:      req.Quantity,
			UnitPrice:     unitPrice,
			TotalAmount:   unitPrice * int64(req.Quantity),
			Currency:      currency,
			Status:        types.ORDER_PENDING,
			ExpiredAt:     expiresAt,
			ReservationID: reservation.ID,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if implicit {
			registration := models.Registration{
				EventID:      event.ID,
				UserID:       req.UserID,
				TicketTypeID: &ticketType.ID,
				OrderID:      &order.ID,
				Status:       types.REGISTRATION_PENDING_PAYMENT,
				ContactEmail: req.ContactEmail,
				RegisteredAt: now,
			}
			if err := createRegistration(tx, &registration); err != nil {
				return err
			}
		}

		if order.TotalAmount == 0 {
			return e.markPaidTx(tx, box, &order, fmt.Sprintf("free:%d", order.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status == types.ORDER_PENDING && e.payments != nil {
		if err := e.initiatePayment(ctx, &order); err != nil {
			log.Printf("[Order] Payment initiation for order %d failed: %s\n", order.ID, err.Error())
		}
	}
	return &order, nil
}

func (e *Engine) checkOpen(event *models.Event) error {
	if event.Status == types.EVENT_CANCELLED || !event.RegistrationOpen {
		return fmt.Errorf("event %d: %w", event.ID, ErrRegistrationClosed)
	}
	if event.RegistrationDeadline != nil && !e.now().Before(*event.RegistrationDeadline) {
		return fmt.Errorf("event %d: %w", event.ID, ErrDeadlinePassed)
	}
	return nil
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Scopes(scopes.ForUpdate).First(&order, orderID).Error; err != nil {
		return nil, notFound(err, "order", orderID)
	}
	return &order, nil
}

// markPaidTx moves a PENDING order to PAID, commits its reservation and lets the
// purchaser's registration continue to admission.
func (e *Engine) markPaidTx(tx *gorm.DB, box *outbox, order *models.Order, transactionID string) error {
	now := e.now()
	if err := moveOrder(tx, order, types.ORDER_PAID, map[string]any{
		"transaction_id": transactionID,
		"paid_at":        now,
	}); err != nil {
		return err
	}
	order.TransactionID = &transactionID
	order.PaidAt = &now

	if err := e.commitTx(tx, order.ReservationID); err != nil {
		return err
	}

	event, err := lockEvent(tx, order.EventID)
	if err != nil {
		return err
	}

	var registrations []models.Registration
	if err := tx.Scopes(scopes.ForUpdate).
		Where("order_id = ? AND status = ?", order.ID, types.REGISTRATION_PENDING_PAYMENT).
		Find(&registrations).Error; err != nil {
		return err
	}

	if event.Status == types.EVENT_CANCELLED {
		// paid after the event was called off: nothing to admit, give the money back
		box.refunds = append(box.refunds, order.ID)
	} else {
		for i := range registrations {
			if err := moveRegistration(tx, &registrations[i], types.REGISTRATION_PENDING, nil); err != nil {
				return err
			}
			if err := e.autoAdmitTx(tx, box, event, &registrations[i]); err != nil {
				return err
			}
		}
	}

	return e.notify(tx, box, order.UserID, types.NOTIFY_ORDER_PAID, types.JSONB{
		"order_id": order.ID,
		"event_id": order.EventID,
		"amount":   order.TotalAmount,
		"currency": order.Currency,
	})
}

// releaseCapacityTx flips the order's release guard before touching the ledger, so
// capacity goes back exactly once whatever path cancels the order.
func (e *Engine) releaseCapacityTx(tx *gorm.DB, order *models.Order) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND capacity_released = ?", order.ID, false).
		Update("capacity_released", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	order.CapacityReleased = true
	return e.releaseTx(tx, order.ReservationID)
}

func (e *Engine) cancelOrderTx(tx *gorm.DB, box *outbox, order *models.Order, reason string) error {
	now := e.now()
	if err := moveOrder(tx, order, types.ORDER_CANCELLED, map[string]any{
		"cancelled_at":  now,
		"cancel_reason": reason,
	}); err != nil {
		return err
	}
	order.CancelledAt = &now
	order.CancelReason = reason

	if err := e.releaseCapacityTx(tx, order); err != nil {
		return err
	}

	return tx.Model(&models.Registration{}).
		Where("order_id = ? AND status = ?", order.ID, types.REGISTRATION_PENDING_PAYMENT).
		Updates(map[string]any{"status": types.REGISTRATION_CANCELLED, "cancelled_at": now}).
		Error
}

// CancelOrder cancels an unpaid order. Cancelling an order that is already
// cancelled returns it unchanged.
func (e *Engine) CancelOrder(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	var order *models.Order
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !actor.owns(order.UserID) {
			return fmt.Errorf("order %d: %w", orderID, ErrForbidden)
		}
		if order.Status == types.ORDER_CANCELLED {
			return nil
		}
		return e.cancelOrderTx(tx, box, order, "cancelled")
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// InitiatePayment asks the provider for a payment intent for a PENDING order and stores its id.
func (e *Engine) InitiatePayment(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	if e.payments == nil {
		return nil, ErrPaymentsUnavailable
	}
	order, err := e.GetOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	if order.Status != types.ORDER_PENDING {
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, ErrInvalidStateTransition)
	}
	if err := e.initiatePayment(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (e *Engine) initiatePayment(ctx context.Context, order *models.Order) error {
	prepayID, err := e.payments.InitiatePayment(ctx, types.PaymentRequest{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	})
	if err != nil {
		return err
	}
	order.PrepayID = &prepayID
	return e.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, types.ORDER_PENDING).
		Update("prepay_id", prepayID).
		Error
}

func (e *Engine) GetOrder(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	var order models.Order
	if err := e.db.WithContext(ctx).Preload("Invites").First(&order, orderID).Error; err != nil {
		return nil, notFound(err, "order", orderID)
	}
	if !actor.owns(order.UserID) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}
	return &order, nil
}

func (e *Engine) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := e.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).
		Error
	return orders, err
}
