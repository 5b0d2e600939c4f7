package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrVerificationFailed = errors.New("payment: webhook verification failed")
	ErrIntentNotFound     = errors.New("payment: intent not found")
	ErrRefundRejected     = errors.New("payment: refund rejected")
)

// EventCheckoutCompleted is the only gateway event type the orchestrator acts
// on; everything else is acknowledged and ignored.
const EventCheckoutCompleted = "checkout.session.completed"

type SessionLineItem struct {
	Name       string
	Quantity   int
	UnitAmount int64
}

type SessionParams struct {
	OrderID       string
	CustomerEmail string
	Currency      string
	// DiscountPercent > 0 is expressed gateway-side as a coupon applied once.
	DiscountPercent decimal.Decimal
	LineItems       []SessionLineItem
}

// Session is a gateway-hosted flow that collects payment details and later
// triggers a webhook event.
type Session struct {
	ID  string
	URL string
}

// Intent is a gateway-side handle for an authorized-but-not-settled charge.
type Intent struct {
	ID string
}

// Event is a verified inbound gateway message.
type Event struct {
	Type    string
	OrderID string
}

// Gateway is the payment collaborator. All calls are expected to complete or
// fail within a bounded timeout; the core never retries internally.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
	ConfirmPaymentIntent(ctx context.Context, intentRef string) error
	Refund(ctx context.Context, intentRef string) error
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
