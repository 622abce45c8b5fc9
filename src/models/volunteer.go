package models

import (
	"eventadmission/src/types"
	"time"
)

type EventVolunteerRole struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	EventID      uint   `gorm:"index" json:"event_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	RecruitCount uint   `json:"recruit_count"`
	CPReward     uint   `json:"cp_reward"`

	types.Timestamps
}

// VolunteerRegistration flags only ever move from false to true.
type VolunteerRegistration struct {
	ID          uint                  `gorm:"primarykey" json:"id"`
	RoleID      uint                  `gorm:"index" json:"role_id"`
	EventID     uint                  `gorm:"index" json:"event_id"`
	UserID      uint                  `gorm:"index" json:"user_id"`
	Status      types.VolunteerStatus `json:"status"`
	Note        string                `json:"note,omitempty"`
	AppliedAt   time.Time             `json:"applied_at"`
	ReviewedBy  *uint                 `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time            `json:"reviewed_at,omitempty"`
	CheckedIn   bool                  `gorm:"not null;default:false" json:"checked_in"`
	CheckedInAt *time.Time            `json:"checked_in_at,omitempty"`
	Completed   bool                  `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	CPAwarded   bool                  `gorm:"not null;default:false" json:"cp_awarded"`
	CPAwardedAt *time.Time            `json:"cp_awarded_at,omitempty"`

	Role *EventVolunteerRole `gorm:"foreignKey:RoleID" json:"role,omitempty"`

	types.Timestamps
}
