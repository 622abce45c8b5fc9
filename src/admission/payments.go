package admission

import (
	"context"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentResult struct {
	Order *models.Order
	// Replayed is set when the callback had already been applied.
	Replayed bool
}

// recordTransaction logs a provider callback. Redeliveries hit the unique
// (kind, reference_id) index and are dropped; inserted reports whether the row is new.
func recordTransaction(tx *gorm.DB, record *models.Transaction) (inserted bool, err error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// strayPayment is money captured for an order that can no longer take it. The
// callback row is kept and the charge goes back to the payer after commit.
type strayPayment struct {
	record *models.Transaction
	refund types.RefundRequest
}

func (e *Engine) refundStrayPayment(ctx context.Context, stray strayPayment) {
	if e.payments == nil {
		log.Printf("[Payment] No provider to refund stray payment %s for order %d\n", stray.refund.TransactionID, stray.refund.OrderID)
		return
	}
	refundID, err := e.payments.InitiateRefund(ctx, stray.refund)
	if err != nil {
		log.Printf("[Payment] Refund of stray payment %s failed: %s\n", stray.refund.TransactionID, err.Error())
		return
	}
	metadata := types.JSONB{"refund_id": refundID, "refund_requested_at": e.now()}
	if err := e.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", stray.record.ID).
		Update("metadata", metadata).
		Error; err != nil {
		log.Printf("[Payment] Could not store refund %s for payment %s: %s\n", refundID, stray.refund.TransactionID, err.Error())
	}
}

// ConfirmPayment applies a payment provider callback. Delivery is at least once:
// a repeated callback for the same transaction id succeeds without side effects.
func (e *Engine) ConfirmPayment(ctx context.Context, cb types.PaymentCallback) (*PaymentResult, error) {
	result := PaymentResult{}
	var rejected error
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		rejected = nil
		order, err := lockOrder(tx, cb.OrderID)
		if err != nil {
			return err
		}
		result.Order = order
		result.Replayed = false

		record := &models.Transaction{
			OrderID:     order.ID,
			Kind:        types.TRANSACTION_PAYMENT,
			ReferenceID: cb.TransactionID,
			Outcome:     string(cb.Outcome),
			Amount:      cb.Amount,
			Currency:    order.Currency,
		}
		inserted, err := recordTransaction(tx, record)
		if err != nil {
			return err
		}
		// the record commits even though the order refuses the payment
		reject := func(err error) error {
			rejected = err
			if inserted {
				box.strays = append(box.strays, strayPayment{record: record, refund: types.RefundRequest{
					OrderID:       order.ID,
					TransactionID: cb.TransactionID,
					Amount:        cb.Amount,
					Currency:      order.Currency,
				}})
			}
			return nil
		}

		if cb.Outcome == types.PAYMENT_FAILED {
			log.Printf("[Payment] Payment %s for order %d failed\n", cb.TransactionID, order.ID)
			return nil
		}

		switch order.Status {
		case types.ORDER_PENDING:
			if cb.Amount != order.TotalAmount {
				return fmt.Errorf("order %d expects %d, got %d: %w", order.ID, order.TotalAmount, cb.Amount, ErrAmountMismatch)
			}
			return e.markPaidTx(tx, box, order, cb.TransactionID)
		case types.ORDER_CANCELLED:
			return reject(fmt.Errorf("order %d is %s: %w", order.ID, order.Status, ErrInvalidStateTransition))
		default:
			if order.TransactionID != nil && *order.TransactionID == cb.TransactionID {
				result.Replayed = true
				return nil
			}
			return reject(fmt.Errorf("order %d already paid by another transaction: %w", order.ID, ErrInvalidStateTransition))
		}
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}
	if result.Replayed {
		log.Printf("[Payment] Replayed callback %s for order %d ignored\n", cb.TransactionID, cb.OrderID)
	}
	return &result, nil
}
