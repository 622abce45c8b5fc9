package models

import (
	"eventadmission/src/types"
	"time"
)

// Registration is the admission record for a user at an event. At most one
// non-cancelled row exists per (event_id, user_id); see db.Migrate.
type Registration struct {
	ID            uint                     `gorm:"primarykey" json:"id"`
	EventID       uint                     `gorm:"index:idx_registrations_queue,priority:1" json:"event_id"`
	UserID        uint                     `gorm:"index" json:"user_id"`
	TicketTypeID  *uint                    `json:"ticket_type_id,omitempty"`
	OrderID       *uint                    `gorm:"index" json:"order_id,omitempty"`
	OrderInviteID *uint                    `gorm:"index" json:"order_invite_id,omitempty"`
	InviteID      *uint                    `json:"invite_id,omitempty"`
	Status        types.RegistrationStatus `gorm:"index:idx_registrations_queue,priority:2" json:"status"`
	ContactEmail  string                   `json:"contact_email,omitempty"`
	RegisteredAt  time.Time                `gorm:"index:idx_registrations_queue,priority:3" json:"registered_at"`
	ReviewedBy    *uint                    `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time               `json:"reviewed_at,omitempty"`
	ReviewNote    string                   `json:"review_note,omitempty"`
	ApprovedAt    *time.Time               `json:"approved_at,omitempty"`
	CancelledAt   *time.Time               `json:"cancelled_at,omitempty"`

	types.Timestamps
}
