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

// RequestRefund moves a PAID order to REFUND_PENDING and asks the provider for the
// refund. Calling it again while the refund is pending retries the provider call if
// no refund id was stored yet.
func (e *Engine) RequestRefund(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
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
		switch order.Status {
		case types.ORDER_REFUND_PENDING, types.ORDER_REFUNDED:
			return nil
		}
		now := e.now()
		if err := moveOrder(tx, order, types.ORDER_REFUND_PENDING, map[string]any{"refund_requested_at": now}); err != nil {
			return err
		}
		order.RefundRequestedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status != types.ORDER_REFUND_PENDING || order.RefundID != nil {
		return order, nil
	}

	if order.TotalAmount == 0 {
		result, err := e.ConfirmRefund(ctx, types.RefundCallback{
			RefundID: fmt.Sprintf("free:%d", order.ID),
			OrderID:  order.ID,
		})
		if err != nil {
			return nil, err
		}
		return result.Order, nil
	}

	if e.payments == nil {
		log.Printf("[Refund] No payment provider, order %d waits for an external refund confirmation\n", order.ID)
		return order, nil
	}

	transactionID := ""
	if order.TransactionID != nil {
		transactionID = *order.TransactionID
	}
	refundID, err := e.payments.InitiateRefund(ctx, types.RefundRequest{
		OrderID:       order.ID,
		TransactionID: transactionID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
	})
	if err != nil {
		log.Printf("[Refund] Provider refund for order %d failed: %s\n", order.ID, err.Error())
		return order, nil
	}
	if err := e.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND refund_id IS NULL", order.ID).
		Update("refund_id", refundID).
		Error; err != nil {
		return nil, err
	}
	order.RefundID = &refundID
	return order, nil
}

// ConfirmRefund applies a provider refund confirmation: the order becomes REFUNDED,
// its capacity is released, registrations it produced are cancelled and unused
// invites are invalidated. A refund started on the provider side (order still PAID)
// passes through REFUND_PENDING in the same transaction.
func (e *Engine) ConfirmRefund(ctx context.Context, cb types.RefundCallback) (*PaymentResult, error) {
	result := PaymentResult{}
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		order, err := lockOrder(tx, cb.OrderID)
		if err != nil {
			return err
		}
		result.Order = order
		result.Replayed = false

		if _, err := recordTransaction(tx, &models.Transaction{
			OrderID:     order.ID,
			Kind:        types.TRANSACTION_REFUND,
			ReferenceID: cb.RefundID,
			Outcome:     string(types.ORDER_REFUNDED),
			Amount:      cb.Amount,
			Currency:    order.Currency,
		}); err != nil {
			return err
		}

		// a refund of a stray payment settles that payment, not the order
		if cb.TransactionID != "" && (order.TransactionID == nil || *order.TransactionID != cb.TransactionID) {
			log.Printf("[Refund] Refund %s covers payment %s, order %d left as %s\n", cb.RefundID, cb.TransactionID, order.ID, order.Status)
			result.Replayed = true
			return nil
		}

		now := e.now()
		switch order.Status {
		case types.ORDER_REFUNDED:
			if order.RefundID != nil && *order.RefundID == cb.RefundID {
				result.Replayed = true
				return nil
			}
			return fmt.Errorf("order %d already refunded by another refund: %w", order.ID, ErrInvalidStateTransition)
		case types.ORDER_PAID:
			if err := moveOrder(tx, order, types.ORDER_REFUND_PENDING, map[string]any{"refund_requested_at": now}); err != nil {
				return err
			}
			order.RefundRequestedAt = &now
		}

		if cb.Amount != 0 && cb.Amount != order.TotalAmount {
			return fmt.Errorf("order %d refund of %d, paid %d: %w", order.ID, cb.Amount, order.TotalAmount, ErrAmountMismatch)
		}

		if err := moveOrder(tx, order, types.ORDER_REFUNDED, map[string]any{
			"refund_id":   cb.RefundID,
			"refunded_at": now,
		}); err != nil {
			return err
		}
		order.RefundID = &cb.RefundID
		order.RefundedAt = &now

		if err := e.releaseCapacityTx(tx, order); err != nil {
			return err
		}
		if err := e.unwindOrderTx(tx, box, order, "refunded"); err != nil {
			return err
		}
		return e.notify(tx, box, order.UserID, types.NOTIFY_REFUND_COMPLETED, types.JSONB{
			"order_id": order.ID,
			"amount":   order.TotalAmount,
			"currency": order.Currency,
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// unwindOrderTx cancels every live registration the order paid for, its own and
// those redeemed from its invites, and invalidates invites nobody redeemed.
func (e *Engine) unwindOrderTx(tx *gorm.DB, box *outbox, order *models.Order, reason string) error {
	event, err := lockEvent(tx, order.EventID)
	if err != nil {
		return err
	}

	inviteIDs := tx.Model(&models.OrderInvite{}).Select("id").Where("order_id = ?", order.ID)
	var registrations []models.Registration
	if err := tx.Scopes(scopes.ForUpdate).
		Where("order_id = ? OR order_invite_id IN (?)", order.ID, inviteIDs).
		Where("status NOT IN (?)", []types.RegistrationStatus{types.REGISTRATION_CANCELLED, types.REGISTRATION_REJECTED}).
		Find(&registrations).Error; err != nil {
		return err
	}

	now := e.now()
	for i := range registrations {
		registration := &registrations[i]
		wasApproved := registration.Status == types.REGISTRATION_APPROVED
		if err := moveRegistration(tx, registration, types.REGISTRATION_CANCELLED, map[string]any{"cancelled_at": now}); err != nil {
			return err
		}
		if err := e.notify(tx, box, registration.UserID, types.NOTIFY_REGISTRATION_CANCELLED, types.JSONB{
			"registration_id": registration.ID,
			"event_id":        registration.EventID,
			"reason":          reason,
		}); err != nil {
			return err
		}
		if wasApproved {
			box.promoteEvent(event.ID)
		}
	}

	return tx.Model(&models.OrderInvite{}).
		Where("order_id = ? AND status = ?", order.ID, types.INVITE_PENDING).
		Updates(map[string]any{"status": types.INVITE_INVALID, "invalidated_at": now}).
		Error
}
