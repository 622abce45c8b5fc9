package lib

import (
	"context"
	"errors"
	"eventadmission/src/types"
	"fmt"
	"os"
	"strconv"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// StripeProvider starts payments and refunds on Stripe. Results come back through
// the /webhook/stripe route.
type StripeProvider struct {
	client *stripe.Client
}

func NewStripeProvider(c *stripe.Client) *StripeProvider {
	return &StripeProvider{client: c}
}

func (p *StripeProvider) InitiatePayment(ctx context.Context, req types.PaymentRequest) (string, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
	}
	params.AddMetadata("order_id", strconv.FormatUint(uint64(req.OrderID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(req.UserID), 10))
	params.SetIdempotencyKey(fmt.Sprintf("order-%d-payment", req.OrderID))
	pi, err := p.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

func (p *StripeProvider) InitiateRefund(ctx context.Context, req types.RefundRequest) (string, error) {
	if req.TransactionID == "" {
		return "", errors.New("order has no payment intent to refund")
	}
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Amount:        stripe.Int64(req.Amount),
	}
	params.AddMetadata("order_id", strconv.FormatUint(uint64(req.OrderID), 10))
	params.SetIdempotencyKey(fmt.Sprintf("payment-%s-refund", req.TransactionID))
	r, err := p.client.V1Refunds.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}
