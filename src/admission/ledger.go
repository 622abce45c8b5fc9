package admission

import (
	"context"
	"eventadmission/src/models"
	"eventadmission/src/models/scopes"
	"eventadmission/src/types"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResolvePrice picks the active tier with the highest threshold not above sold.
// tiers must be ordered by ascending threshold.
func ResolvePrice(base int64, tiers []models.PriceTier, sold uint) int64 {
	price := base
	for _, tier := range tiers {
		if !tier.Active {
			continue
		}
		if tier.Threshold > sold {
			break
		}
		price = tier.Price
	}
	return price
}

// reserveTx increments the ticket type counter and records a HELD reservation. The
// increment is a single conditional UPDATE, so concurrent callers can never push
// current_quantity past max_quantity.
func (e *Engine) reserveTx(tx *gorm.DB, ticketTypeID uint, quantity uint, expiresAt time.Time) (*models.Reservation, int64, error) {
	if quantity == 0 {
		return nil, 0, ErrInvalidQuantity
	}

	var ticketType models.TicketType
	if err := tx.Scopes(scopes.ForUpdate).First(&ticketType, ticketTypeID).Error; err != nil {
		return nil, 0, notFound(err, "ticket type", ticketTypeID)
	}
	if !ticketType.Active {
		return nil, 0, fmt.Errorf("ticket type %d: %w", ticketTypeID, ErrTicketTypeInactive)
	}

	var tiers []models.PriceTier
	if err := tx.Where("ticket_type_id = ? AND active = ?", ticketTypeID, true).
		Order("threshold asc").
		Find(&tiers).Error; err != nil {
		return nil, 0, err
	}
	unitPrice := ResolvePrice(ticketType.Price, tiers, ticketType.CurrentQuantity)

	res := tx.Model(&models.TicketType{}).
		Where("id = ?", ticketTypeID).
		Where("(max_quantity IS NULL OR current_quantity + ? <= max_quantity)", quantity).
		UpdateColumn("current_quantity", gorm.Expr("current_quantity + ?", quantity))
	if res.Error != nil {
		return nil, 0, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, 0, fmt.Errorf("ticket type %d, %d requested: %w", ticketTypeID, quantity, ErrCapacityExceeded)
	}

	reservation := models.Reservation{
		TicketTypeID: ticketTypeID,
		Quantity:     quantity,
		Status:       types.RESERVATION_HELD,
		ExpiresAt:    expiresAt,
	}
	if err := tx.Create(&reservation).Error; err != nil {
		return nil, 0, err
	}
	return &reservation, unitPrice, nil
}

func (e *Engine) commitTx(tx *gorm.DB, reservationID uuid.UUID) error {
	res := tx.Model(&models.Reservation{}).
		Where("id = ? AND status = ?", reservationID, types.RESERVATION_HELD).
		Updates(map[string]any{"status": types.RESERVATION_COMMITTED, "committed_at": e.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var reservation models.Reservation
	if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
		return notFound(err, "reservation", reservationID)
	}
	if reservation.Status == types.RESERVATION_COMMITTED {
		return nil
	}
	return fmt.Errorf("reservation %s is %s: %w", reservationID, reservation.Status, ErrInvalidStateTransition)
}

// releaseTx returns the reservation's quantity to the counter. A reservation that
// was already released is left alone.
func (e *Engine) releaseTx(tx *gorm.DB, reservationID uuid.UUID) error {
	var reservation models.Reservation
	if err := tx.First(&reservation, "id = ?", reservationID).Error; err != nil {
		return notFound(err, "reservation", reservationID)
	}
	if reservation.Status == types.RESERVATION_RELEASED {
		return nil
	}

	res := tx.Model(&models.Reservation{}).
		Where("id = ? AND status <> ?", reservationID, types.RESERVATION_RELEASED).
		Updates(map[string]any{"status": types.RESERVATION_RELEASED, "released_at": e.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	return tx.Model(&models.TicketType{}).
		Where("id = ? AND current_quantity >= ?", reservation.TicketTypeID, reservation.Quantity).
		UpdateColumn("current_quantity", gorm.Expr("current_quantity - ?", reservation.Quantity)).
		Error
}

// Reserve holds quantity seats of a ticket type until expiresAt. The returned
// price is the unit price in effect before the hold.
func (e *Engine) Reserve(ctx context.Context, ticketTypeID uint, quantity uint, expiresAt time.Time) (*models.Reservation, int64, error) {
	var reservation *models.Reservation
	var price int64
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		var err error
		reservation, price, err = e.reserveTx(tx, ticketTypeID, quantity, expiresAt)
		return err
	})
	return reservation, price, err
}

func (e *Engine) Commit(ctx context.Context, reservationID uuid.UUID) error {
	return e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		return e.commitTx(tx, reservationID)
	})
}

func (e *Engine) Release(ctx context.Context, reservationID uuid.UUID) error {
	return e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		return e.releaseTx(tx, reservationID)
	})
}
