package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shopora/checkout/internal/domain/order"
	"github.com/shopora/checkout/internal/pkg/logging"
)

// CancelOrder atomically moves the order to canceled, then unwinds its side
// effects: stock is credited back per line, the coupon slot is released, and
// card payments are refunded. Refund failure is surfaced to the caller but
// the cancellation stands.
func (s *Service) CancelOrder(ctx context.Context, orderID, reason string, actor Actor) (_ *order.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseCancel, attribute.String("order.id", orderID))
	defer func() { finish(err) }()

	logger := logging.FromContext(ctx).With(
		zap.String("use_case", useCaseCancel),
		zap.String("order_id", orderID),
	)

	if !s.caps.CanCancel(actor) {
		return nil, ErrForbidden
	}

	o, err := s.orders.Cancel(ctx, orderID, reason, actor.UserID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if errors.Is(err, order.ErrInvalidTransition) {
		return nil, ErrOrderNotCancelable
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: cancel order: %w", err)
	}

	// Compensating credits: strictly additive, never guarded by the original
	// availability check, and applied even if the request context is gone.
	compCtx := context.WithoutCancel(ctx)
	for _, it := range o.Items {
		if incErr := s.stock.Increment(compCtx, it.ProductID, it.Quantity); incErr != nil {
			s.met.PostCommitFailures.WithLabelValues("stock_restore").Inc()
			logger.Error("stock_restore_failed",
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(incErr),
			)
		}
	}
	if o.CouponID != "" {
		if relErr := s.coupons.Release(compCtx, o.CouponID, o.UserID); relErr != nil {
			s.met.PostCommitFailures.WithLabelValues("coupon_release").Inc()
			logger.Error("coupon_release_failed",
				zap.String("coupon_id", o.CouponID),
				zap.Error(relErr),
			)
		}
	}

	refunded := false
	var refundErr error
	if o.Payment == order.PaymentCard && o.PaymentIntentID != "" {
		if refundErr = s.gateway.Refund(compCtx, o.PaymentIntentID); refundErr != nil {
			logger.Error("refund_failed",
				zap.String("payment_intent", o.PaymentIntentID),
				zap.Error(refundErr),
			)
		} else {
			refunded = true
		}
	}

	s.publish(compCtx, logger, order.NewOrderCanceledEvent(o, refunded))

	logger.Info("order_canceled",
		zap.String("status", o.Status.String()),
		zap.Bool("refunded", refunded),
	)

	if refundErr != nil {
		// Inventory and coupon release stand; only the refund is reported.
		return o, fmt.Errorf("%w: %v", ErrRefundFailed, refundErr)
	}
	return o, nil
}

// AdvanceStatus moves a placed order one fulfilment step forward
// (placed -> on_way -> delivered) via an exact compare-and-set.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, actor Actor) (_ *order.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseAdvance, attribute.String("order.id", orderID))
	defer func() { finish(err) }()

	if !s.caps.CanAdvance(actor) {
		return nil, ErrForbidden
	}

	o, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: load order: %w", err)
	}

	next, err := o.Status.Next()
	if err != nil {
		return nil, ErrOrderNotEligible
	}

	updated, err := s.orders.Advance(ctx, orderID, o.Status, next, actor.UserID)
	if errors.Is(err, order.ErrInvalidTransition) || errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotEligible
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: advance order: %w", err)
	}

	logging.FromContext(ctx).Info("order_advanced",
		zap.String("order_id", updated.ID),
		zap.String("status", updated.Status.String()),
	)
	return updated, nil
}

// FreezeOrder soft-deletes an order; paid orders are archived this way, never
// hard-deleted.
func (s *Service) FreezeOrder(ctx context.Context, orderID string, actor Actor) (_ *order.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseArchive, attribute.String("order.id", orderID))
	defer func() { finish(err) }()

	if !s.caps.CanArchive(actor) {
		return nil, ErrForbidden
	}
	o, err := s.orders.Freeze(ctx, orderID, actor.UserID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// RestoreOrder clears the soft-delete marker.
func (s *Service) RestoreOrder(ctx context.Context, orderID string, actor Actor) (_ *order.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseArchive, attribute.String("order.id", orderID))
	defer func() { finish(err) }()

	if !s.caps.CanArchive(actor) {
		return nil, ErrForbidden
	}
	o, err := s.orders.Restore(ctx, orderID, actor.UserID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// GetOrder returns the order snapshot, visible to its owner or to privileged
// actors.
func (s *Service) GetOrder(ctx context.Context, orderID string, actor Actor) (*order.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: load order: %w", err)
	}
	if o.UserID != actor.UserID && !s.caps.CanCancel(actor) {
		return nil, ErrForbidden
	}
	return o, nil
}
