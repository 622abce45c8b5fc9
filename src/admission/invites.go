package admission

import (
	"context"
	"errors"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// inviteLimit is how many seats of the order can be handed out as invites.
func (e *Engine) inviteLimit(order *models.Order) int64 {
	if e.policy.SeatPolicy == types.SEAT_POLICY_EXPLICIT {
		return int64(order.Quantity)
	}
	return int64(order.Quantity) - 1
}

// IssueInvite creates a redemption code for one seat of a PAID order.
func (e *Engine) IssueInvite(ctx context.Context, orderID uint, actor Actor) (*models.OrderInvite, error) {
	var invite models.OrderInvite
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !actor.owns(order.UserID) {
			return fmt.Errorf("order %d: %w", orderID, ErrForbidden)
		}
		if order.Status != types.ORDER_PAID {
			return fmt.Errorf("order %d is %s: %w", order.ID, order.Status, ErrInvalidStateTransition)
		}

		var issued int64
		if err := tx.Model(&models.OrderInvite{}).Where("order_id = ?", order.ID).Count(&issued).Error; err != nil {
			return err
		}
		if issued >= e.inviteLimit(order) {
			return fmt.Errorf("order %d has issued %d invites: %w", order.ID, issued, ErrInviteLimitReached)
		}

		var event models.Event
		if err := tx.First(&event, order.EventID).Error; err != nil {
			return notFound(err, "event", order.EventID)
		}
		expiresAt := event.StartsAt
		if event.RegistrationDeadline != nil {
			expiresAt = *event.RegistrationDeadline
		}

		invite = models.OrderInvite{
			OrderID:   order.ID,
			Code:      strings.ReplaceAll(uuid.NewString(), "-", ""),
			Status:    types.INVITE_PENDING,
			ExpiresAt: &expiresAt,
		}
		return tx.Create(&invite).Error
	})
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (e *Engine) ListInvites(ctx context.Context, orderID uint, actor Actor) ([]models.OrderInvite, error) {
	order, err := e.GetOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	return order.Invites, nil
}

func (e *Engine) GetInvite(ctx context.Context, code string) (*models.OrderInvite, error) {
	var invite models.OrderInvite
	if err := e.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invite %q: %w", code, ErrInvalidInvite)
		}
		return nil, err
	}
	return &invite, nil
}

// RedeemInvite claims an invite for userID and creates their registration. The
// PENDING to REDEEMED step is a compare-and-swap, so of two concurrent redemptions
// exactly one wins and the other gets ErrAlreadyRedeemed.
func (e *Engine) RedeemInvite(ctx context.Context, code string, userID uint, contactEmail string) (*models.Registration, error) {
	var registration models.Registration
	var invalid error
	err := e.transact(ctx, func(tx *gorm.DB, box *outbox) error {
		invalid = nil

		var invite models.OrderInvite
		if err := tx.Where("code = ?", code).First(&invite).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invite %q: %w", code, ErrInvalidInvite)
			}
			return err
		}
		switch invite.Status {
		case types.INVITE_REDEEMED:
			return fmt.Errorf("invite %q: %w", code, ErrAlreadyRedeemed)
		case types.INVITE_INVALID:
			return fmt.Errorf("invite %q: %w", code, ErrInvalidInvite)
		}

		order, err := lockOrder(tx, invite.OrderID)
		if err != nil {
			return err
		}

		now := e.now()
		if order.Status != types.ORDER_PAID || (invite.ExpiresAt != nil && !now.Before(*invite.ExpiresAt)) {
			// the invalidation is kept, the caller still gets an error
			if err := moveInvite(tx, &invite, types.INVITE_INVALID, map[string]any{"invalidated_at": now}); err != nil {
				return err
			}
			invalid = fmt.Errorf("invite %q: %w", code, ErrInvalidInvite)
			return nil
		}

		if err := claimInviteTx(tx, &invite, userID, now); err != nil {
			return err
		}

		event, err := lockEvent(tx, order.EventID)
		if err != nil {
			return err
		}
		if event.Status == types.EVENT_CANCELLED {
			return fmt.Errorf("event %d: %w", event.ID, ErrRegistrationClosed)
		}
		if err := ensureNoActiveRegistration(tx, event.ID, userID); err != nil {
			return err
		}

		registration = models.Registration{
			EventID:       event.ID,
			UserID:        userID,
			TicketTypeID:  &order.TicketTypeID,
			OrderInviteID: &invite.ID,
			Status:        types.REGISTRATION_PENDING,
			ContactEmail:  contactEmail,
			RegisteredAt:  now,
		}
		if err := createRegistration(tx, &registration); err != nil {
			return err
		}
		return e.autoAdmitTx(tx, box, event, &registration)
	})
	if err != nil {
		return nil, err
	}
	if invalid != nil {
		return nil, invalid
	}
	return &registration, nil
}

// claimInviteTx flips the invite from PENDING to REDEEMED. It runs before any
// other check of the redemption, so of two racing claims the loser always sees
// ErrAlreadyRedeemed.
func claimInviteTx(tx *gorm.DB, invite *models.OrderInvite, userID uint, now time.Time) error {
	res := tx.Model(&models.OrderInvite{}).
		Where("id = ? AND status = ?", invite.ID, types.INVITE_PENDING).
		Updates(map[string]any{
			"status":      types.INVITE_REDEEMED,
			"redeemed_by": userID,
			"redeemed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invite %q: %w", invite.Code, ErrAlreadyRedeemed)
	}
	invite.Status = types.INVITE_REDEEMED
	invite.RedeemedBy = &userID
	invite.RedeemedAt = &now
	return nil
}
