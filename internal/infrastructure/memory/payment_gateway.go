package memory

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	domain "github.com/shopora/checkout/internal/domain/payment"
)

// PaymentGateway simulates the card gateway for development and tests. It
// mints session and intent ids, remembers which intents exist, and verifies
// webhooks with an HMAC-SHA256 signature over the raw payload.
type PaymentGateway struct {
	mu       sync.Mutex
	secret   []byte
	intents  map[string]bool // intent id -> confirmed
	refunded map[string]bool

	// FailRefund makes Refund return ErrRefundRejected; used by tests.
	FailRefund bool
}

func NewPaymentGateway(webhookSecret string) *PaymentGateway {
	return &PaymentGateway{
		secret:   []byte(webhookSecret),
		intents:  make(map[string]bool),
		refunded: make(map[string]bool),
	}
}

func (g *PaymentGateway) CreateCheckoutSession(ctx context.Context, params domain.SessionParams) (*domain.Session, error) {
	_ = ctx
	id := "cs_" + uuid.NewString()
	return &domain.Session{ID: id, URL: "https://checkout.invalid/" + id}, nil
}

func (g *PaymentGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*domain.Intent, error) {
	_ = ctx
	_ = amount
	_ = currency

	g.mu.Lock()
	defer g.mu.Unlock()

	id := "pi_" + uuid.NewString()
	g.intents[id] = false
	return &domain.Intent{ID: id}, nil
}

func (g *PaymentGateway) ConfirmPaymentIntent(ctx context.Context, intentRef string) error {
	_ = ctx

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.intents[intentRef]; !ok {
		return domain.ErrIntentNotFound
	}
	g.intents[intentRef] = true
	return nil
}

func (g *PaymentGateway) Refund(ctx context.Context, intentRef string) error {
	_ = ctx

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailRefund {
		return domain.ErrRefundRejected
	}
	if _, ok := g.intents[intentRef]; !ok {
		return domain.ErrIntentNotFound
	}
	g.refunded[intentRef] = true
	return nil
}

// Refunded reports whether a refund was issued for the intent.
func (g *PaymentGateway) Refunded(intentRef string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[intentRef]
}

// Sign produces the signature VerifyWebhook expects for the payload.
func (g *PaymentGateway) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookPayload struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
}

func (g *PaymentGateway) VerifyWebhook(rawPayload []byte, signature string) (*domain.Event, error) {
	expected := g.Sign(rawPayload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, domain.ErrVerificationFailed
	}

	var body webhookPayload
	if err := json.Unmarshal(rawPayload, &body); err != nil {
		return nil, domain.ErrVerificationFailed
	}
	return &domain.Event{Type: body.Type, OrderID: body.OrderID}, nil
}
