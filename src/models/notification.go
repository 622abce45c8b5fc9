package models

import (
	"eventadmission/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID           uuid.UUID              `gorm:"primarykey;type:uuid" json:"id"`
	UserID       uint                   `gorm:"index" json:"user_id"`
	Kind         types.NotificationKind `json:"kind"`
	Payload      types.JSONB            `gorm:"type:jsonb" json:"payload,omitempty"`
	DispatchedAt *time.Time             `json:"dispatched_at,omitempty"`

	types.Timestamps
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
