package models

import (
	"eventadmission/src/types"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type Event struct {
	ID                   uint              `gorm:"primarykey" json:"id"`
	Title                string            `json:"title"`
	Slug                 string            `gorm:"uniqueIndex" json:"slug"`
	About                *string           `json:"about,omitempty"`
	Location             string            `json:"location,omitempty"`
	StartsAt             time.Time         `json:"starts_at"`
	Status               types.EventStatus `gorm:"index;default:'active'" json:"status"`
	MaxAttendees         *uint             `json:"max_attendees"`
	RegistrationDeadline *time.Time        `json:"registration_deadline,omitempty"`
	RequireApproval      bool              `json:"require_approval"`
	RegistrationOpen     bool              `json:"registration_open"`
	CreatedBy            uint              `json:"created_by,omitempty"`
	CancelledAt          *time.Time        `json:"cancelled_at,omitempty"`

	TicketTypes    []TicketType         `json:"ticket_types,omitempty"`
	VolunteerRoles []EventVolunteerRole `json:"volunteer_roles,omitempty"`

	types.Timestamps
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.Slug == "" {
		e.Slug = fmt.Sprintf("%s-%s", slug.Make(e.Title), uuid.NewString()[:8])
	}
	if e.Status == "" {
		e.Status = types.EVENT_ACTIVE
	}
	return nil
}
