package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}

func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &a)
}

type EventStatus string

const (
	EVENT_ACTIVE    EventStatus = "active"
	EVENT_CANCELLED EventStatus = "cancelled"
)

type ReservationStatus string

const (
	RESERVATION_HELD      ReservationStatus = "HELD"
	RESERVATION_COMMITTED ReservationStatus = "COMMITTED"
	RESERVATION_RELEASED  ReservationStatus = "RELEASED"
)

type OrderStatus string

const (
	ORDER_PENDING        OrderStatus = "PENDING"
	ORDER_PAID           OrderStatus = "PAID"
	ORDER_CANCELLED      OrderStatus = "CANCELLED"
	ORDER_REFUND_PENDING OrderStatus = "REFUND_PENDING"
	ORDER_REFUNDED       OrderStatus = "REFUNDED"
)

type InviteStatus string

const (
	INVITE_PENDING  InviteStatus = "PENDING"
	INVITE_REDEEMED InviteStatus = "REDEEMED"
	INVITE_INVALID  InviteStatus = "INVALID"
)

type RegistrationStatus string

const (
	REGISTRATION_PENDING_PAYMENT RegistrationStatus = "PENDING_PAYMENT"
	REGISTRATION_PENDING         RegistrationStatus = "PENDING"
	REGISTRATION_APPROVED        RegistrationStatus = "APPROVED"
	REGISTRATION_WAITLISTED      RegistrationStatus = "WAITLISTED"
	REGISTRATION_REJECTED        RegistrationStatus = "REJECTED"
	REGISTRATION_CANCELLED       RegistrationStatus = "CANCELLED"
)

type VolunteerStatus string

const (
	VOLUNTEER_APPLIED   VolunteerStatus = "APPLIED"
	VOLUNTEER_APPROVED  VolunteerStatus = "APPROVED"
	VOLUNTEER_REJECTED  VolunteerStatus = "REJECTED"
	VOLUNTEER_CANCELLED VolunteerStatus = "CANCELLED"
)

type PaymentOutcome string

const (
	PAYMENT_SUCCEEDED PaymentOutcome = "SUCCEEDED"
	PAYMENT_FAILED    PaymentOutcome = "FAILED"
)

type TransactionKind string

const (
	TRANSACTION_PAYMENT TransactionKind = "payment"
	TRANSACTION_REFUND  TransactionKind = "refund"
)

type Decision string

const (
	DECISION_APPROVE Decision = "APPROVE"
	DECISION_REJECT  Decision = "REJECT"
)

// InviteSeatPolicy decides whether the purchaser of a multi-seat order holds a seat implicitly.
type InviteSeatPolicy string

const (
	SEAT_POLICY_IMPLICIT InviteSeatPolicy = "implicit"
	SEAT_POLICY_EXPLICIT InviteSeatPolicy = "explicit"
)

type NotificationKind string

const (
	NOTIFY_REGISTRATION_APPROVED   NotificationKind = "registration.approved"
	NOTIFY_REGISTRATION_WAITLISTED NotificationKind = "registration.waitlisted"
	NOTIFY_REGISTRATION_PROMOTED   NotificationKind = "registration.promoted"
	NOTIFY_REGISTRATION_REJECTED   NotificationKind = "registration.rejected"
	NOTIFY_REGISTRATION_CANCELLED  NotificationKind = "registration.cancelled"
	NOTIFY_ORDER_PAID              NotificationKind = "order.paid"
	NOTIFY_ORDER_EXPIRED           NotificationKind = "order.expired"
	NOTIFY_REFUND_COMPLETED        NotificationKind = "order.refunded"
	NOTIFY_VOLUNTEER_APPROVED      NotificationKind = "volunteer.approved"
	NOTIFY_VOLUNTEER_REJECTED      NotificationKind = "volunteer.rejected"
	NOTIFY_CP_AWARDED              NotificationKind = "volunteer.cp_awarded"
	NOTIFY_EVENT_CANCELLED         NotificationKind = "event.cancelled"
)

type Notification struct {
	UserID  uint             `json:"user_id"`
	Kind    NotificationKind `json:"kind"`
	Payload JSONB            `json:"payload,omitempty"`
}

// PaymentCallback is the provider-agnostic shape of an inbound payment result.
type PaymentCallback struct {
	TransactionID string         `json:"transaction_id" binding:"required"`
	OrderID       uint           `json:"order_id" binding:"required"`
	Outcome       PaymentOutcome `json:"outcome" binding:"required,oneof=SUCCEEDED FAILED"`
	Amount        int64          `json:"amount" binding:"min=0"`
}

type RefundCallback struct {
	RefundID string `json:"refund_id" binding:"required"`
	OrderID  uint   `json:"order_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"min=0"`
	// TransactionID names the refunded payment when the provider reports it.
	TransactionID string `json:"transaction_id,omitempty"`
}

type PaymentRequest struct {
	OrderID  uint
	UserID   uint
	Amount   int64
	Currency string
}

type RefundRequest struct {
	OrderID       uint
	TransactionID string
	Amount        int64
	Currency      string
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type InviteCodeParams struct {
	Code string `uri:"code" binding:"required,max=64"`
}

type ListRegistrationsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING_PAYMENT PENDING APPROVED WAITLISTED REJECTED CANCELLED"`
}

type CreateEventRequestBody struct {
	Title                string  `json:"title" binding:"required,max=200"`
	About                *string `json:"about,omitempty"`
	Location             string  `json:"location,omitempty"`
	StartsAt             string  `json:"starts_at" binding:"required,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
	RegistrationDeadline *string `json:"registration_deadline,omitempty" binding:"omitempty,futuredate,ltdate=StartsAt" time_format:"2006-01-02 15:04:05 -07:00"`
	MaxAttendees         *uint   `json:"max_attendees,omitempty"`
	RequireApproval      bool    `json:"require_approval"`
	RegistrationOpen     *bool   `json:"registration_open,omitempty"`
}

type CreateTicketTypeRequestBody struct {
	Name        string `json:"name" binding:"required,max=100"`
	Price       int64  `json:"price" binding:"min=0"`
	Currency    string `json:"currency,omitempty" binding:"omitempty,len=3"`
	MaxQuantity *uint  `json:"max_quantity,omitempty"`
}

type CreatePriceTierRequestBody struct {
	Threshold uint  `json:"threshold"`
	Price     int64 `json:"price" binding:"min=0"`
}

type UpdateTicketTypeRequestBody struct {
	Active *bool `json:"active" binding:"required"`
}

type UpdateRegistrationWindowRequestBody struct {
	RegistrationOpen     *bool   `json:"registration_open" binding:"required"`
	RegistrationDeadline *string `json:"registration_deadline,omitempty" binding:"omitempty,futuredate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type AdjustCapacityRequestBody struct {
	MaxAttendees *uint `json:"max_attendees"`
}

type CreateOrderRequestBody struct {
	EventID      uint   `json:"event_id" binding:"required"`
	TicketTypeID uint   `json:"ticket_type_id" binding:"required"`
	Quantity     uint   `json:"quantity" binding:"required,min=1,max=50"`
	ContactEmail string `json:"contact_email,omitempty" binding:"omitempty,email"`
}

type CreateRegistrationRequestBody struct {
	EventID      uint   `json:"event_id" binding:"required"`
	ContactEmail string `json:"contact_email,omitempty" binding:"omitempty,email"`
}

type RedeemInviteRequestBody struct {
	ContactEmail string `json:"contact_email,omitempty" binding:"omitempty,email"`
}

type ReviewRequestBody struct {
	Decision Decision `json:"decision" binding:"required,decision"`
	Note     string   `json:"note,omitempty" binding:"max=500"`
}

type CreateVolunteerRoleRequestBody struct {
	Name         string `json:"name" binding:"required,max=100"`
	Description  string `json:"description,omitempty"`
	RecruitCount uint   `json:"recruit_count" binding:"required,min=1"`
	CPReward     uint   `json:"cp_reward"`
}

type ApplyVolunteerRequestBody struct {
	Note string `json:"note,omitempty" binding:"max=500"`
}

type Handler func(payload string) error
