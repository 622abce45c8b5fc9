package controllers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"eventadmission/src/admission"
	"eventadmission/src/common"
	"eventadmission/src/lib"
	"eventadmission/src/types"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookDedupeTTL = 24 * time.Hour

var ErrIgnoredEvent = errors.New("event type not handled")

func orderIDFromMetadata(metadata map[string]string) (uint, error) {
	id, err := strconv.ParseUint(metadata["order_id"], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: missing order_id metadata", common.ErrMalformedCallback)
	}
	return uint(id), nil
}

// StripeCallback converts a verified Stripe event into an engine callback.
// Events the engine does not care about return ErrIgnoredEvent.
func StripeCallback(event stripe.Event) (*common.CallbackMessage, error) {
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %s", common.ErrMalformedCallback, err.Error())
		}
		orderID, err := orderIDFromMetadata(pi.Metadata)
		if err != nil {
			return nil, err
		}
		outcome := types.PAYMENT_SUCCEEDED
		if event.Type == "payment_intent.payment_failed" {
			outcome = types.PAYMENT_FAILED
		}
		return &common.CallbackMessage{Payment: &types.PaymentCallback{
			TransactionID: pi.ID,
			OrderID:       orderID,
			Outcome:       outcome,
			Amount:        pi.Amount,
		}}, nil
	case "refund.created", "refund.updated":
		var refund stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
			return nil, fmt.Errorf("%w: %s", common.ErrMalformedCallback, err.Error())
		}
		if refund.Status != stripe.RefundStatusSucceeded {
			return nil, ErrIgnoredEvent
		}
		orderID, err := orderIDFromMetadata(refund.Metadata)
		if err != nil {
			return nil, err
		}
		cb := &types.RefundCallback{
			RefundID: refund.ID,
			OrderID:  orderID,
			Amount:   refund.Amount,
		}
		if refund.PaymentIntent != nil {
			cb.TransactionID = refund.PaymentIntent.ID
		}
		return &common.CallbackMessage{Refund: cb}, nil
	}
	return nil, ErrIgnoredEvent
}

// ApplyCallback hands a callback to the engine.
func ApplyCallback(ctx context.Context, msg *common.CallbackMessage) (*admission.PaymentResult, error) {
	e := admission.GetEngine()
	if msg.Payment != nil {
		return e.ConfirmPayment(ctx, *msg.Payment)
	}
	return e.ConfirmRefund(ctx, *msg.Refund)
}

// StripeWebhook verifies and applies a Stripe event. Redis only skips redeliveries
// of events that already committed; the engine stays idempotent without it.
func StripeWebhook(ctx *gin.Context) (int, error) {
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return http.StatusServiceUnavailable, err
	}
	event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), os.Getenv("STRIPE_WEBHOOK_SECRET"))
	if err != nil {
		log.Printf("Error verifying webhook signature: %s\n", err.Error())
		return http.StatusBadRequest, err
	}
	log.Printf("[StripeEvent] %s %s\n", event.ID, event.Type)

	msg, err := StripeCallback(event)
	if errors.Is(err, ErrIgnoredEvent) {
		return http.StatusOK, nil
	}
	if err != nil {
		log.Printf("[Stripe] Dropping event %s: %s\n", event.ID, err.Error())
		return http.StatusOK, nil
	}

	return applyOnce(ctx.Request.Context(), lib.GetRedisClient(), "stripe:"+event.ID, func(c context.Context) error {
		_, err := ApplyCallback(c, msg)
		return err
	})
}

// applyOnce runs apply unless key was marked by an earlier delivery. The key is
// written after apply returns, so an event lost to a crash mid-apply is retried.
func applyOnce(ctx context.Context, rdb *redis.Client, key string, apply func(context.Context) error) (int, error) {
	seen, err := lib.IdempotencyKeySeen(ctx, rdb, key)
	if err != nil {
		log.Printf("[Stripe] Idempotency check failed: %s\n", err.Error())
	}
	if seen {
		log.Printf("[Stripe] %s already processed\n", key)
		return http.StatusOK, nil
	}

	if err := apply(ctx); err != nil {
		if !common.Permanent(err) {
			return http.StatusInternalServerError, err
		}
		log.Printf("[Stripe] %s rejected: %s\n", key, err.Error())
	}
	if err := lib.MarkIdempotencyKey(ctx, rdb, key, webhookDedupeTTL); err != nil {
		log.Printf("[Stripe] Could not mark %s: %s\n", key, err.Error())
	}
	return http.StatusOK, nil
}

// PaymentCallback handles the provider-agnostic callback route. The shared secret
// travels in X-Callback-Secret.
func PaymentCallback(ctx *gin.Context) (*admission.PaymentResult, int, error) {
	secret := os.Getenv("PAYMENT_CALLBACK_SECRET")
	given := ctx.GetHeader("X-Callback-Secret")
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(given)) != 1 {
		return nil, http.StatusUnauthorized, errors.New("invalid callback secret")
	}
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	msg, err := common.ParseCallbackMessage(string(payload))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return respond(ApplyCallback(ctx.Request.Context(), msg))
}
