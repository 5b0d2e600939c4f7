package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shopora/checkout/internal/domain/order"
	"github.com/shopora/checkout/internal/domain/payment"
	"github.com/shopora/checkout/internal/pkg/logging"
)

// InitiatePayment opens a gateway checkout session for a pending card order
// owned by the actor. Re-invocation while still pending creates a new session
// and overwrites the stored payment intent reference: latest session wins.
func (s *Service) InitiatePayment(ctx context.Context, orderID string, actor Actor) (_ *payment.Session, err error) {
	ctx, finish := s.instrument(ctx, useCasePayment, attribute.String("order.id", orderID))
	defer func() { finish(err) }()

	logger := logging.FromContext(ctx).With(
		zap.String("use_case", useCasePayment),
		zap.String("order_id", orderID),
	)

	o, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: load order: %w", err)
	}
	if o.UserID != actor.UserID || o.Payment != order.PaymentCard || o.Status != order.StatusPending {
		return nil, ErrOrderNotEligible
	}

	params := payment.SessionParams{
		OrderID:         o.ID,
		CustomerEmail:   actor.UserID,
		Currency:        s.currency,
		DiscountPercent: o.DiscountPercent,
		LineItems:       make([]payment.SessionLineItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		params.LineItems = append(params.LineItems, payment.SessionLineItem{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitAmount: it.UnitPrice,
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("checkout: create checkout session: %w", err)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, o.Subtotal, s.currency)
	if err != nil {
		return nil, fmt.Errorf("checkout: create payment intent: %w", err)
	}

	if err = s.orders.SetPaymentIntent(ctx, o.ID, intent.ID); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			// The order stopped being pending between the read and the write.
			return nil, ErrOrderNotEligible
		}
		return nil, fmt.Errorf("checkout: store payment intent: %w", err)
	}

	logger.Info("checkout_session_created",
		zap.String("session_id", session.ID),
		zap.String("payment_intent", intent.ID),
		zap.Int64("amount", o.Subtotal),
	)
	return session, nil
}

// HandlePaymentWebhook reconciles an asynchronous gateway callback. The
// conditional pending->placed transition is the sole concurrency guard:
// duplicated or out-of-order callbacks are idempotent no-ops. Once the
// signature verifies, an event matching no pending card order is acknowledged
// and logged; there is no corrective action the gateway could take.
func (s *Service) HandlePaymentWebhook(ctx context.Context, rawPayload []byte, signature string) (err error) {
	ctx, finish := s.instrument(ctx, useCaseWebhook)
	defer func() { finish(err) }()

	logger := logging.FromContext(ctx).With(zap.String("use_case", useCaseWebhook))

	event, verr := s.gateway.VerifyWebhook(rawPayload, signature)
	if verr != nil {
		logger.Warn("webhook_verification_failed", zap.Error(verr))
		return ErrPaymentVerification
	}
	if event.Type != payment.EventCheckoutCompleted {
		logger.Info("webhook_event_ignored", zap.String("event_type", event.Type))
		return nil
	}

	o, cerr := s.orders.ConfirmPayment(ctx, event.OrderID, s.now())
	if errors.Is(cerr, order.ErrNotFound) {
		logger.Info("webhook_order_unmatched", zap.String("order_id", event.OrderID))
		return nil
	}
	if cerr != nil {
		return fmt.Errorf("checkout: confirm payment: %w", cerr)
	}

	if o.PaymentIntentID != "" {
		if ierr := s.gateway.ConfirmPaymentIntent(ctx, o.PaymentIntentID); ierr != nil {
			// The order is already placed; the intent confirmation is
			// reported for operators, not bounced back to the gateway.
			logger.Error("payment_intent_confirm_failed",
				zap.String("order_id", o.ID),
				zap.String("payment_intent", o.PaymentIntentID),
				zap.Error(ierr),
			)
		}
	}

	s.publish(context.WithoutCancel(ctx), logger, order.NewOrderPaidEvent(o))

	logger.Info("payment_confirmed",
		zap.String("order_id", o.ID),
		zap.String("status", o.Status.String()),
	)
	return nil
}
