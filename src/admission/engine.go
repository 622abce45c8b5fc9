// Package admission implements the event admission engine: ticket inventory,
// payment-gated orders, seat invites, registrations with waitlisting and
// volunteer admission. Every mutation runs inside one database transaction and
// re-checks state there; side effects are collected and flushed after commit.
package admission

import (
	"context"
	"eventadmission/src/config"
	"eventadmission/src/db"
	"eventadmission/src/models"
	"eventadmission/src/types"
	"fmt"
	"log"
	"maps"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, n types.Notification) error
}

// PaymentProvider starts payments and refunds with the external gateway. Results
// arrive later through ConfirmPayment and ConfirmRefund.
type PaymentProvider interface {
	InitiatePayment(ctx context.Context, req types.PaymentRequest) (string, error)
	InitiateRefund(ctx context.Context, req types.RefundRequest) (string, error)
}

type Policy struct {
	PaymentWindow  time.Duration
	SeatPolicy     types.InviteSeatPolicy
	SweepBatchSize int
	Currency       string
}

func DefaultPolicy() Policy {
	return Policy{
		PaymentWindow:  config.PaymentWindow(),
		SeatPolicy:     config.InviteSeatPolicy(),
		SweepBatchSize: config.SweepBatchSize(),
		Currency:       config.DefaultCurrency(),
	}
}

// Actor is whoever triggered an operation. Admins may act on any user's records.
type Actor struct {
	UserID uint
	Admin  bool
}

func (a Actor) owns(userID uint) bool {
	return a.Admin || a.UserID == userID
}

type Engine struct {
	db       *gorm.DB
	clock    clockwork.Clock
	notifier Notifier
	payments PaymentProvider
	policy   Policy
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithPaymentProvider(p PaymentProvider) Option {
	return func(e *Engine) { e.payments = p }
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func New(d *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       d,
		clock:    clockwork.NewRealClock(),
		notifier: logNotifier{},
		policy:   DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var engine *Engine

func GetEngine() *Engine {
	if engine != nil {
		return engine
	}
	engine = New(db.GetDb())
	return engine
}

// UseEngine replaces the process-wide engine instance
func UseEngine(e *Engine) *Engine {
	engine = e
	return engine
}

func (e *Engine) DB() *gorm.DB {
	return e.db
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

type logNotifier struct{}

func (logNotifier) Notify(ctx context.Context, n types.Notification) error {
	log.Printf("[Notify] user=%d kind=%s payload=%v\n", n.UserID, n.Kind, n.Payload)
	return nil
}

// outbox collects work that must only happen once the transaction has committed.
type outbox struct {
	notifications []models.Notification
	promote       []uint
	refunds       []uint
	strays        []strayPayment
}

func (o *outbox) promoteEvent(eventID uint) {
	if !slices.Contains(o.promote, eventID) {
		o.promote = append(o.promote, eventID)
	}
}

func (e *Engine) transact(ctx context.Context, fn func(tx *gorm.DB, box *outbox) error) error {
	var box outbox
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		box = outbox{}
		return fn(tx, &box)
	})
	if err != nil {
		return err
	}
	e.flush(ctx, &box)
	return nil
}

// notify stores the notification with the transaction that caused it; delivery happens in flush.
func (e *Engine) notify(tx *gorm.DB, box *outbox, userID uint, kind types.NotificationKind, payload types.JSONB) error {
	n := models.Notification{UserID: userID, Kind: kind, Payload: payload}
	if err := tx.Create(&n).Error; err != nil {
		return err
	}
	box.notifications = append(box.notifications, n)
	return nil
}

func (e *Engine) flush(ctx context.Context, box *outbox) {
	for _, n := range box.notifications {
		err := e.notifier.Notify(ctx, types.Notification{UserID: n.UserID, Kind: n.Kind, Payload: n.Payload})
		if err != nil {
			log.Printf("[Notify] Failed to dispatch %s to user %d: %s\n", n.Kind, n.UserID, err.Error())
			continue
		}
		if err := e.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("id = ?", n.ID).
			Update("dispatched_at", e.now()).
			Error; err != nil {
			log.Printf("[Notify] Could not mark notification %s dispatched: %s\n", n.ID.String(), err.Error())
		}
	}
	for _, eventID := range box.promote {
		if _, err := e.PromoteWaitlist(ctx, eventID); err != nil {
			log.Printf("[Waitlist] Promotion for event %d failed: %s\n", eventID, err.Error())
		}
	}
	for _, stray := range box.strays {
		e.refundStrayPayment(ctx, stray)
	}
	for _, orderID := range box.refunds {
		if _, err := e.RequestRefund(ctx, orderID, Actor{Admin: true}); err != nil {
			log.Printf("[Refund] Refund for order %d failed: %s\n", orderID, err.Error())
		}
	}
}

// move is a compare-and-swap on a status column: the row only changes if it still holds `from`.
func move[S ~string](tx *gorm.DB, model any, rules transitions[S], id uint, from, to S, fields map[string]any) error {
	if err := rules.check(from, to); err != nil {
		return err
	}
	updates := map[string]any{"status": to}
	maps.Copy(updates, fields)
	res := tx.Model(model).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%T %d no longer %s: %w", model, id, from, ErrInvalidStateTransition)
	}
	return nil
}

func moveOrder(tx *gorm.DB, order *models.Order, to types.OrderStatus, fields map[string]any) error {
	if err := move(tx, &models.Order{}, orderTransitions, order.ID, order.Status, to, fields); err != nil {
		return fmt.Errorf("order %d: %w", order.ID, err)
	}
	order.Status = to
	return nil
}

func moveRegistration(tx *gorm.DB, reg *models.Registration, to types.RegistrationStatus, fields map[string]any) error {
	if err := move(tx, &models.Registration{}, registrationTransitions, reg.ID, reg.Status, to, fields); err != nil {
		return fmt.Errorf("registration %d: %w", reg.ID, err)
	}
	reg.Status = to
	return nil
}

func moveVolunteer(tx *gorm.DB, vr *models.VolunteerRegistration, to types.VolunteerStatus, fields map[string]any) error {
	if err := move(tx, &models.VolunteerRegistration{}, volunteerTransitions, vr.ID, vr.Status, to, fields); err != nil {
		return fmt.Errorf("volunteer registration %d: %w", vr.ID, err)
	}
	vr.Status = to
	return nil
}

func moveInvite(tx *gorm.DB, inv *models.OrderInvite, to types.InviteStatus, fields map[string]any) error {
	if err := move(tx, &models.OrderInvite{}, inviteTransitions, inv.ID, inv.Status, to, fields); err != nil {
		return fmt.Errorf("invite %d: %w", inv.ID, err)
	}
	inv.Status = to
	return nil
}
