package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripelib "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/shopora/checkout/internal/domain/payment"
)

// Gateway adapts the Stripe API to the payment port: hosted checkout
// sessions, one-off percent coupons for discounted orders, payment intents,
// and signed webhook events.
type Gateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

func NewGateway(cfg Config) *Gateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, params payment.SessionParams) (*payment.Session, error) {
	sessionParams := &stripelib.CheckoutSessionParams{
		Mode:               stripelib.String(string(stripelib.CheckoutSessionModePayment)),
		CustomerEmail:      stripelib.String(params.CustomerEmail),
		SuccessURL:         stripelib.String(g.successURL),
		CancelURL:          stripelib.String(g.cancelURL),
		PaymentMethodTypes: stripelib.StringSlice([]string{"card"}),
	}
	sessionParams.Context = ctx
	sessionParams.AddMetadata("orderId", params.OrderID)

	for _, it := range params.LineItems {
		sessionParams.LineItems = append(sessionParams.LineItems, &stripelib.CheckoutSessionLineItemParams{
			Quantity: stripelib.Int64(int64(it.Quantity)),
			PriceData: &stripelib.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripelib.String(params.Currency),
				UnitAmount: stripelib.Int64(it.UnitAmount),
				ProductData: &stripelib.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripelib.String(it.Name),
				},
			},
		})
	}

	if params.DiscountPercent.IsPositive() {
		pct, _ := params.DiscountPercent.Round(2).Float64()
		coupon, err := g.api.Coupons.New(&stripelib.CouponParams{
			Params:     stripelib.Params{Context: ctx},
			Duration:   stripelib.String(string(stripelib.CouponDurationOnce)),
			PercentOff: stripelib.Float64(pct),
		})
		if err != nil {
			return nil, fmt.Errorf("stripe gateway: create coupon: %w", err)
		}
		sessionParams.Discounts = []*stripelib.CheckoutSessionDiscountParams{
			{Coupon: stripelib.String(coupon.ID)},
		}
	}

	session, err := g.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe gateway: create session: %w", err)
	}
	return &payment.Session{ID: session.ID, URL: session.URL}, nil
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*payment.Intent, error) {
	intent, err := g.api.PaymentIntents.New(&stripelib.PaymentIntentParams{
		Params:   stripelib.Params{Context: ctx},
		Amount:   stripelib.Int64(amount),
		Currency: stripelib.String(currency),
		AutomaticPaymentMethods: &stripelib.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripelib.Bool(true),
			AllowRedirects: stripelib.String("never"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("stripe gateway: create intent: %w", err)
	}
	return &payment.Intent{ID: intent.ID}, nil
}

func (g *Gateway) ConfirmPaymentIntent(ctx context.Context, intentRef string) error {
	intent, err := g.api.PaymentIntents.Get(intentRef, &stripelib.PaymentIntentParams{
		Params: stripelib.Params{Context: ctx},
	})
	if err != nil {
		return payment.ErrIntentNotFound
	}
	if intent.Status != stripelib.PaymentIntentStatusRequiresConfirmation {
		// Already confirmed (gateway retried or the hosted flow settled it).
		return nil
	}
	_, err = g.api.PaymentIntents.Confirm(intentRef, &stripelib.PaymentIntentConfirmParams{
		Params: stripelib.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("stripe gateway: confirm intent: %w", err)
	}
	return nil
}

func (g *Gateway) Refund(ctx context.Context, intentRef string) error {
	intent, err := g.api.PaymentIntents.Get(intentRef, &stripelib.PaymentIntentParams{
		Params: stripelib.Params{Context: ctx},
	})
	if err != nil {
		return payment.ErrIntentNotFound
	}
	if intent.Status != stripelib.PaymentIntentStatusSucceeded {
		return payment.ErrRefundRejected
	}
	_, err = g.api.Refunds.New(&stripelib.RefundParams{
		Params:        stripelib.Params{Context: ctx},
		PaymentIntent: stripelib.String(intentRef),
	})
	if err != nil {
		return fmt.Errorf("stripe gateway: refund: %w", err)
	}
	return nil
}

func (g *Gateway) VerifyWebhook(rawPayload []byte, signature string) (*payment.Event, error) {
	event, err := webhook.ConstructEvent(rawPayload, signature, g.webhookSecret)
	if err != nil {
		return nil, payment.ErrVerificationFailed
	}

	var orderID string
	if event.Type == stripelib.EventType(payment.EventCheckoutCompleted) {
		var session stripelib.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err == nil {
			orderID = session.Metadata["orderId"]
		}
	}
	return &payment.Event{Type: string(event.Type), OrderID: orderID}, nil
}
