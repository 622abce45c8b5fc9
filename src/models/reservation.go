package models

import (
	"eventadmission/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation is a hold on ticket inventory. HELD expires with its order,
// COMMITTED is permanent, RELEASED has already been returned to the counter.
type Reservation struct {
	ID           uuid.UUID               `gorm:"primarykey;type:uuid" json:"id"`
	TicketTypeID uint                    `gorm:"index" json:"ticket_type_id"`
	Quantity     uint                    `json:"quantity"`
	Status       types.ReservationStatus `gorm:"index" json:"status"`
	ExpiresAt    time.Time               `json:"expires_at"`
	CommittedAt  *time.Time              `json:"committed_at,omitempty"`
	ReleasedAt   *time.Time              `json:"released_at,omitempty"`

	types.Timestamps
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
