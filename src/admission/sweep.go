package admission

import (
	"context"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SweepExpiredOrders cancels PENDING orders whose payment window has closed and
// returns how many it cancelled. Each order is re-checked under its row lock, so a
// payment that lands first always wins.
func (e *Engine) SweepExpiredOrders(ctx context.Context) (int, error) {
	var ids []uint
	err := e.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND expired_at <= ?", types.ORDER_PENDING, e.now()).
		Order("expired_at asc").
		Limit(e.policy.SweepBatchSize).
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, id := range ids {
		expired, err := e.expireOrder(ctx, id)
		if err != nil {
			log.Printf("[Sweep] Could not expire order %d: %s\n", id, err.Error())
			continue
		}
		if expired {
			swept++
		}
	}
	if swept > 0 {
		log.Printf("[Sweep] Expired %d of %d candidate orders\n", swept, len(ids))
	}
	if released, err := e.releaseExpiredHolds(ctx); err != nil {
		log.Printf("[Sweep] Could not release expired holds: %s\n", err.Error())
	} else if released > 0 {
		log.Printf("[Sweep] Released %d expired holds\n", released)
	}
	return swept, nil
}

// releaseExpiredHolds returns the seats of HELD reservations that no order owns
// once they pass expires_at. Holds owned by an order go back with the order.
func (e *Engine) releaseExpiredHolds(ctx context.Context) (int, error) {
	now := e.now()
	var ids []uuid.UUID
	err := e.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("status = ? AND expires_at <= ?", types.RESERVATION_HELD, now).
		Where("NOT EXISTS (SELECT 1 FROM orders WHERE orders.reservation_id = reservations.id)").
		Order("expires_at asc").
		Limit(e.policy.SweepBatchSize).
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		freed := false
		err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
			var reservation models.Reservation
			if err := tx.First(&reservation, "id = ?", id).Error; err != nil {
				return notFound(err, "reservation", id)
			}
			res := tx.Model(&models.Reservation{}).
				Where("id = ? AND status = ? AND expires_at <= ?", id, types.RESERVATION_HELD, now).
				Updates(map[string]any{"status": types.RESERVATION_RELEASED, "released_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			freed = true
			return tx.Model(&models.TicketType{}).
				Where("id = ? AND current_quantity >= ?", reservation.TicketTypeID, reservation.Quantity).
				UpdateColumn("current_quantity", gorm.Expr("current_quantity - ?", reservation.Quantity)).
				Error
		})
		if err != nil {
			log.Printf("[Sweep] Could not release hold %s: %s\n", id.String(), err.Error())
			continue
		}
		if freed {
			released++
		}
	}
	return released, nil
}

func (e *Engine) expireOrder(ctx context.Context, orderID uint) (bool, error) {
	expired := false
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != types.ORDER_PENDING || e.now().Before(order.ExpiredAt) {
			return nil
		}
		if err := e.cancelOrderTx(tx, box, order, "expired"); err != nil {
			return err
		}
		expired = true
		return e.notify(tx, box, order.UserID, types.NOTIFY_ORDER_EXPIRED, types.JSONB{
			"order_id": order.ID,
			"event_id": order.EventID,
		})
	})
	return expired, err
}
