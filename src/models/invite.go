package models

import (
	"eventadmission/src/types"
	"time"
)

type OrderInvite struct {
	ID            uint               `gorm:"primarykey" json:"id"`
	OrderID       uint               `gorm:"index" json:"order_id"`
	Code          string             `gorm:"uniqueIndex;size:64" json:"code"`
	Status        types.InviteStatus `json:"status"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	RedeemedBy    *uint              `json:"redeemed_by,omitempty"`
	RedeemedAt    *time.Time         `json:"redeemed_at,omitempty"`
	InvalidatedAt *time.Time         `json:"invalidated_at,omitempty"`

	types.Timestamps
}
