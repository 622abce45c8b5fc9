package common

import (
	"context"
	"errors"
	"eventadmission/src/admission"
	"eventadmission/src/types"
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrMalformedCallback = errors.New("malformed payment callback")

// CallbackMessage is a payment or refund result delivered over a queue. Exactly one
// of Payment and Refund is set.
type CallbackMessage struct {
	Payment *types.PaymentCallback
	Refund  *types.RefundCallback
}

// ParseCallbackMessage accepts a raw callback or one wrapped in an SNS envelope
// ({"Type":"Notification","Message":"<json>"}).
func ParseCallbackMessage(body string) (*CallbackMessage, error) {
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedCallback)
	}
	msg := gjson.Parse(body)
	if inner := msg.Get("Message"); inner.Type == gjson.String {
		if !gjson.Valid(inner.String()) {
			return nil, fmt.Errorf("%w: invalid envelope message", ErrMalformedCallback)
		}
		msg = gjson.Parse(inner.String())
	}

	orderID := msg.Get("order_id").Uint()
	if orderID == 0 {
		return nil, fmt.Errorf("%w: missing order_id", ErrMalformedCallback)
	}
	amount := msg.Get("amount").Int()
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrMalformedCallback)
	}

	switch strings.ToLower(msg.Get("kind").String()) {
	case "", string(types.TRANSACTION_PAYMENT):
		txID := msg.Get("transaction_id").String()
		outcome := types.PaymentOutcome(strings.ToUpper(msg.Get("outcome").String()))
		if txID == "" {
			return nil, fmt.Errorf("%w: missing transaction_id", ErrMalformedCallback)
		}
		if outcome != types.PAYMENT_SUCCEEDED && outcome != types.PAYMENT_FAILED {
			return nil, fmt.Errorf("%w: unknown outcome %q", ErrMalformedCallback, outcome)
		}
		return &CallbackMessage{Payment: &types.PaymentCallback{
			TransactionID: txID,
			OrderID:       uint(orderID),
			Outcome:       outcome,
			Amount:        amount,
		}}, nil
	case string(types.TRANSACTION_REFUND):
		refundID := msg.Get("refund_id").String()
		if refundID == "" {
			return nil, fmt.Errorf("%w: missing refund_id", ErrMalformedCallback)
		}
		return &CallbackMessage{Refund: &types.RefundCallback{
			RefundID:      refundID,
			OrderID:       uint(orderID),
			Amount:        amount,
			TransactionID: msg.Get("transaction_id").String(),
		}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedCallback, msg.Get("kind").String())
	}
}

// PaymentCallbacksHandler applies queued callbacks to the engine. Malformed messages
// and business rejections are dropped; only transient errors keep the message on
// the queue for another delivery.
func PaymentCallbacksHandler(e *admission.Engine) types.Handler {
	return func(body string) error {
		cb, err := ParseCallbackMessage(body)
		if err != nil {
			log.Printf("[PaymentCallbacks] Dropping message: %s\n", err.Error())
			return nil
		}
		ctx := context.Background()
		if cb.Payment != nil {
			res, err := e.ConfirmPayment(ctx, *cb.Payment)
			return settle("payment", cb.Payment.OrderID, res, err)
		}
		res, err := e.ConfirmRefund(ctx, *cb.Refund)
		return settle("refund", cb.Refund.OrderID, res, err)
	}
}

func settle(kind string, orderID uint, res *admission.PaymentResult, err error) error {
	if err != nil {
		if Permanent(err) {
			log.Printf("[PaymentCallbacks] %s for order %d rejected: %s\n", kind, orderID, err.Error())
			return nil
		}
		return err
	}
	if res.Replayed {
		log.Printf("[PaymentCallbacks] %s for order %d already applied\n", kind, orderID)
	}
	return nil
}

// Permanent reports whether redelivering a callback could never succeed.
func Permanent(err error) bool {
	for _, target := range []error{
		admission.ErrNotFound,
		admission.ErrInvalidStateTransition,
		admission.ErrAmountMismatch,
		ErrMalformedCallback,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
