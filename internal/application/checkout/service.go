package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shopora/checkout/internal/domain/cart"
	"github.com/shopora/checkout/internal/domain/coupon"
	"github.com/shopora/checkout/internal/domain/order"
	"github.com/shopora/checkout/internal/domain/outbox"
	"github.com/shopora/checkout/internal/domain/payment"
	"github.com/shopora/checkout/internal/domain/product"
	"github.com/shopora/checkout/internal/pkg/logging"
	"github.com/shopora/checkout/internal/pkg/metrics"
)

const (
	useCaseCreate  = "checkout.create_order"
	useCasePayment = "checkout.initiate_payment"
	useCaseWebhook = "checkout.payment_webhook"
	useCaseCancel  = "checkout.cancel_order"
	useCaseAdvance = "checkout.advance_status"
	useCaseArchive = "checkout.archive"

	spanPrefix     = "UC."
	publishTimeout = 300 * time.Millisecond
)

// Service is the checkout orchestrator. It is stateless and safe to run on
// any number of concurrent goroutines; correctness comes from the atomicity
// of the underlying ledger operations, not from in-process locking.
type Service struct {
	orders    order.Repository
	coupons   coupon.Ledger
	stock     product.Ledger
	carts     cart.Store
	gateway   payment.Gateway
	publisher outbox.Publisher
	ids       IDGenerator
	codes     CodeGenerator
	caps      Capability
	currency  string
	met       *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

type Config struct {
	Orders    order.Repository
	Coupons   coupon.Ledger
	Stock     product.Ledger
	Carts     cart.Store
	Gateway   payment.Gateway
	Publisher outbox.Publisher
	IDs       IDGenerator
	Codes     CodeGenerator
	Caps      Capability
	Currency  string
	Metrics   *metrics.Metrics
}

func NewService(cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "egp"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop()
	}
	return &Service{
		orders:    cfg.Orders,
		coupons:   cfg.Coupons,
		stock:     cfg.Stock,
		carts:     cfg.Carts,
		gateway:   cfg.Gateway,
		publisher: cfg.Publisher,
		ids:       cfg.IDs,
		codes:     cfg.Codes,
		caps:      cfg.Caps,
		currency:  cfg.Currency,
		met:       cfg.Metrics,
		tracer:    otel.Tracer("checkout"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateOrderInput struct {
	Actor    Actor
	Address  string
	Phone    string
	Note     string
	Payment  order.PaymentMethod
	CouponID string
}

// CreateOrder converts the actor's cart into a committed order: validates the
// coupon, atomically decrements stock per line (rolling back earlier
// decrements on failure), captures unit prices, persists the order, and then
// runs the best-effort post-commit steps (coupon redemption, cart clearing,
// event publish).
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *order.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseCreate,
		attribute.String("order.user_id", in.Actor.UserID),
		attribute.String("order.payment", string(in.Payment)),
	)
	defer func() { finish(err) }()

	logger := logging.FromContext(ctx).With(
		zap.String("use_case", useCaseCreate),
		zap.String("user_id", in.Actor.UserID),
	)
	logger.Info("create_order_start", zap.String("payment", string(in.Payment)))

	userCart, err := s.carts.Get(ctx, in.Actor.UserID)
	if err != nil && !errors.Is(err, cart.ErrNotFound) {
		return nil, fmt.Errorf("checkout: load cart: %w", err)
	}
	if userCart == nil || len(userCart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var cpn *coupon.Coupon
	if in.CouponID != "" {
		cpn, err = s.loadCoupon(ctx, in.CouponID, in.Actor.UserID)
		if err != nil {
			return nil, err
		}
	}

	items, err := s.reserveStock(ctx, logger, userCart.Items)
	if err != nil {
		return nil, err
	}
	// Past this point any failure must credit back every reserved line.
	defer func() {
		if err != nil {
			s.releaseStock(ctx, logger, items)
		}
	}()

	entity, err := order.New(
		s.ids.NewID(), s.codes.NewCode(),
		in.Actor.UserID, in.Address, in.Phone, in.Note,
		in.Payment, items,
	)
	if err != nil {
		return nil, err
	}
	if cpn != nil {
		entity.CouponID = cpn.ID
		if err = entity.ApplyDiscount(cpn.DiscountPercent(entity.Total)); err != nil {
			return nil, err
		}
	}

	if err = s.orders.Insert(ctx, entity); err != nil {
		return nil, fmt.Errorf("checkout: persist order: %w", err)
	}

	// Best-effort post-commit bookkeeping: the order is the source of truth
	// for "did checkout happen", so failures here are reported, not rolled
	// back. Double-running checkout is prevented by the cart being empty on
	// retry.
	postCtx := context.WithoutCancel(ctx)
	if cpn != nil {
		if redeemErr := s.coupons.TryRedeem(postCtx, cpn.ID, in.Actor.UserID); redeemErr != nil {
			s.met.PostCommitFailures.WithLabelValues("coupon_redeem").Inc()
			logger.Warn("coupon_redeem_failed",
				zap.String("order_id", entity.ID),
				zap.String("coupon_id", cpn.ID),
				zap.Error(redeemErr),
			)
		}
	}
	if clearErr := s.carts.Clear(postCtx, in.Actor.UserID); clearErr != nil {
		s.met.PostCommitFailures.WithLabelValues("cart_clear").Inc()
		logger.Warn("cart_clear_failed", zap.String("order_id", entity.ID), zap.Error(clearErr))
	}
	s.publish(postCtx, logger, order.NewOrderCreatedEvent(entity))

	logger.Info("create_order_success",
		zap.String("order_id", entity.ID),
		zap.String("order_code", entity.Code),
		zap.String("status", entity.Status.String()),
		zap.Int64("total", entity.Total),
		zap.Int64("subtotal", entity.Subtotal),
	)
	return entity, nil
}

func (s *Service) loadCoupon(ctx context.Context, couponID, userID string) (*coupon.Coupon, error) {
	cpn, err := s.coupons.Get(ctx, couponID)
	if errors.Is(err, coupon.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: load coupon: %w", err)
	}
	if !cpn.Usable(s.now()) {
		return nil, ErrCouponExpired
	}
	if cpn.RedemptionsBy(userID) >= cpn.Duration {
		return nil, ErrCouponExhausted
	}
	return cpn, nil
}

// reserveStock decrements every cart line atomically and captures the current
// sale price into the order snapshot. On any failure it credits back the
// lines already taken before returning.
func (s *Service) reserveStock(ctx context.Context, logger *zap.Logger, lines []cart.Item) (_ []order.LineItem, err error) {
	items := make([]order.LineItem, 0, len(lines))
	defer func() {
		if err != nil {
			s.releaseStock(ctx, logger, items)
		}
	}()

	for _, line := range lines {
		p, perr := s.stock.Get(ctx, line.ProductID)
		if errors.Is(perr, product.ErrNotFound) {
			return nil, &InsufficientStockError{ProductID: line.ProductID}
		}
		if perr != nil {
			return nil, fmt.Errorf("checkout: load product %s: %w", line.ProductID, perr)
		}

		if derr := s.stock.TryDecrement(ctx, line.ProductID, line.Quantity); derr != nil {
			if errors.Is(derr, product.ErrInsufficientStock) || errors.Is(derr, product.ErrNotFound) {
				return nil, &InsufficientStockError{ProductID: line.ProductID}
			}
			return nil, fmt.Errorf("checkout: reserve stock for %s: %w", line.ProductID, derr)
		}

		items = append(items, order.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.SalePrice,
			LineTotal: p.SalePrice * int64(line.Quantity),
		})
	}
	return items, nil
}

// releaseStock is the compensating credit for reserveStock. It runs even when
// the request context is already canceled.
func (s *Service) releaseStock(ctx context.Context, logger *zap.Logger, items []order.LineItem) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range items {
		if err := s.stock.Increment(ctx, it.ProductID, it.Quantity); err != nil {
			logger.Error("stock_rollback_failed",
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, e outbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		s.met.PostCommitFailures.WithLabelValues("event_publish").Inc()
		logger.Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}

func (s *Service) instrument(ctx context.Context, useCase string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := s.tracer.Start(ctx, spanPrefix+useCase, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		s.met.UsecaseRequests.WithLabelValues(useCase, outcome).Inc()
		s.met.UsecaseDuration.WithLabelValues(useCase).Observe(time.Since(start).Seconds())
	}
}
