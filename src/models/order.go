package models

import (
	"eventadmission/src/types"
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID                uint              `gorm:"primarykey" json:"id"`
	UserID            uint              `gorm:"index" json:"user_id"`
	EventID           uint              `gorm:"index" json:"event_id"`
	TicketTypeID      uint              `json:"ticket_type_id"`
	Quantity          uint              `json:"quantity"`
	UnitPrice         int64             `json:"unit_price"`
	TotalAmount       int64             `json:"total_amount"`
	Currency          string            `json:"currency"`
	Status            types.OrderStatus `gorm:"index:idx_orders_status_expiry" json:"status"`
	ExpiredAt         time.Time         `gorm:"index:idx_orders_status_expiry" json:"expired_at"`
	ReservationID     uuid.UUID         `gorm:"type:uuid" json:"-"`
	CapacityReleased  bool              `gorm:"not null;default:false" json:"-"`
	TransactionID     *string           `gorm:"uniqueIndex" json:"transaction_id,omitempty"`
	PrepayID          *string           `json:"prepay_id,omitempty"`
	RefundID          *string           `gorm:"uniqueIndex" json:"refund_id,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty"`
	RefundRequestedAt *time.Time        `json:"refund_requested_at,omitempty"`
	RefundedAt        *time.Time        `json:"refunded_at,omitempty"`

	Invites []OrderInvite `json:"invites,omitempty"`

	types.Timestamps
}
