// Package payment talks to the hosted checkout provider that sells API plans.
package payment

import (
	"context"
	"encoding/json"
	"errors"
)

// EventCheckoutPaid is the webhook event that grants a subscription.
const EventCheckoutPaid = "checkout.paid"

var ErrProvider = errors.New("payment provider error")

// Provider is the subset of the checkout provider the marketplace needs.
type Provider interface {
	CreateProduct(ctx context.Context, name, description string) (string, error)
	CreatePrice(ctx context.Context, productID string, amount int64) (string, error)
	CreateCheckout(ctx context.Context, priceID, redirectURL string, metadata CheckoutMetadata) (string, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// CheckoutMetadata travels through the provider and comes back on the
// checkout.paid webhook. IDs may arrive as JSON numbers or strings.
type CheckoutMetadata struct {
	UserID   json.Number `json:"user_id"`
	APIID    json.Number `json:"api_id"`
	PlanName string      `json:"plan_name"`
}

// Event is a webhook delivery.
type Event struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Data Checkout `json:"data"`
}

type Checkout struct {
	ID       string           `json:"id"`
	Amount   int64            `json:"amount"`
	Status   string           `json:"status"`
	Metadata CheckoutMetadata `json:"metadata"`
}
