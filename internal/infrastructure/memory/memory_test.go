package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/shopora/checkout/internal/domain/coupon"
	"github.com/shopora/checkout/internal/domain/order"
	"github.com/shopora/checkout/internal/domain/payment"
	"github.com/shopora/checkout/internal/domain/product"
)

func TestInventoryTryDecrementGuards(t *testing.T) {
	l := NewInventoryLedger()
	l.Seed(&product.Product{ID: "p1", Stock: 3, SalePrice: 100})

	ctx := context.Background()
	require.NoError(t, l.TryDecrement(ctx, "p1", 2))
	assert.ErrorIs(t, l.TryDecrement(ctx, "p1", 2), product.ErrInsufficientStock)
	assert.ErrorIs(t, l.TryDecrement(ctx, "missing", 1), product.ErrNotFound)
	assert.ErrorIs(t, l.TryDecrement(ctx, "p1", 0), product.ErrInvalidQuantity)

	p, err := l.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)

	require.NoError(t, l.Increment(ctx, "p1", 2))
	p, err = l.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestInventoryConcurrentDecrements(t *testing.T) {
	l := NewInventoryLedger()
	l.Seed(&product.Product{ID: "p1", Stock: 10})

	var g errgroup.Group
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			if err := l.TryDecrement(context.Background(), "p1", 1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 10, successes)
	p, err := l.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func seedCoupon(l *CouponLedger, duration int) {
	now := time.Now().UTC()
	l.Seed(&coupon.Coupon{
		ID:        "c1",
		Type:      coupon.TypePercent,
		Discount:  10,
		Duration:  duration,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	})
}

func TestCouponRedeemAndRelease(t *testing.T) {
	l := NewCouponLedger()
	seedCoupon(l, 1)
	ctx := context.Background()

	require.NoError(t, l.TryRedeem(ctx, "c1", "user-1"))
	assert.ErrorIs(t, l.TryRedeem(ctx, "c1", "user-1"), coupon.ErrExhausted)

	// Another user has their own slot.
	require.NoError(t, l.TryRedeem(ctx, "c1", "user-2"))

	require.NoError(t, l.Release(ctx, "c1", "user-1"))
	require.NoError(t, l.TryRedeem(ctx, "c1", "user-1"))

	// Releasing a slot the user never held is a no-op.
	assert.NoError(t, l.Release(ctx, "c1", "user-3"))
	assert.ErrorIs(t, l.Release(ctx, "missing", "user-1"), coupon.ErrNotFound)
}

func TestCouponRedeemOutsideWindow(t *testing.T) {
	l := NewCouponLedger()
	l.Seed(&coupon.Coupon{
		ID:        "c1",
		Duration:  1,
		StartDate: time.Now().UTC().Add(-2 * time.Hour),
		EndDate:   time.Now().UTC().Add(-time.Hour),
	})
	assert.ErrorIs(t, l.TryRedeem(context.Background(), "c1", "user-1"), coupon.ErrExpired)
}

func TestCouponConcurrentRedeemsHonorCap(t *testing.T) {
	l := NewCouponLedger()
	seedCoupon(l, 2)

	var g errgroup.Group
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			if err := l.TryRedeem(context.Background(), "c1", "user-1"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 2, successes)
}

func newOrder(t *testing.T, id string, method order.PaymentMethod) *order.Order {
	t.Helper()
	o, err := order.New(id, "CODE-"+id, "user-1", "addr", "phone", "", method,
		[]order.LineItem{{ProductID: "p1", Name: "Widget", Quantity: 1, UnitPrice: 100}})
	require.NoError(t, err)
	return o
}

func TestOrderInsertRejectsDuplicates(t *testing.T) {
	r := NewOrderRepository()
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, newOrder(t, "o1", order.PaymentCash)))
	assert.ErrorIs(t, r.Insert(ctx, newOrder(t, "o1", order.PaymentCash)), order.ErrConflict)

	dup := newOrder(t, "o2", order.PaymentCash)
	dup.Code = "CODE-o1"
	assert.ErrorIs(t, r.Insert(ctx, dup), order.ErrConflict)
}

func TestOrderFindByCode(t *testing.T) {
	r := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, newOrder(t, "o1", order.PaymentCash)))

	found, err := r.FindByCode(ctx, "CODE-o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", found.ID)

	_, err = r.FindByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestConfirmPaymentIsConditional(t *testing.T) {
	r := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, newOrder(t, "card", order.PaymentCard)))
	require.NoError(t, r.Insert(ctx, newOrder(t, "cash", order.PaymentCash)))

	paidAt := time.Now().UTC()
	o, err := r.ConfirmPayment(ctx, "card", paidAt)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPlaced, o.Status)
	require.NotNil(t, o.PaidAt)

	// Already placed: the filter no longer matches.
	_, err = r.ConfirmPayment(ctx, "card", paidAt)
	assert.ErrorIs(t, err, order.ErrNotFound)

	// Cash orders never confirm through the gateway.
	_, err = r.ConfirmPayment(ctx, "cash", paidAt)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestSetPaymentIntentOnlyWhilePending(t *testing.T) {
	r := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, newOrder(t, "o1", order.PaymentCard)))

	require.NoError(t, r.SetPaymentIntent(ctx, "o1", "pi_1"))
	require.NoError(t, r.SetPaymentIntent(ctx, "o1", "pi_2"))

	o, err := r.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "pi_2", o.PaymentIntentID)

	_, err = r.ConfirmPayment(ctx, "o1", time.Now().UTC())
	require.NoError(t, err)
	assert.ErrorIs(t, r.SetPaymentIntent(ctx, "o1", "pi_3"), order.ErrNotFound)
}

func TestCancelRespectsTerminalStates(t *testing.T) {
	r := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, newOrder(t, "o1", order.PaymentCash)))

	_, err := r.Advance(ctx, "o1", order.StatusPlaced, order.StatusOnWay, "admin")
	require.NoError(t, err)
	_, err = r.Advance(ctx, "o1", order.StatusOnWay, order.StatusDelivered, "admin")
	require.NoError(t, err)

	_, err = r.Cancel(ctx, "o1", "too late", "admin")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	require.NoError(t, r.Insert(ctx, newOrder(t, "o2", order.PaymentCash)))
	canceled, err := r.Cancel(ctx, "o2", "changed mind", "admin")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCanceled, canceled.Status)
	assert.Equal(t, "changed mind", canceled.CancelReason)

	_, err = r.Cancel(ctx, "o2", "again", "admin")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestAdvanceIsCompareAndSet(t *testing.T) {
	r := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, newOrder(t, "o1", order.PaymentCash)))

	_, err := r.Advance(ctx, "o1", order.StatusOnWay, order.StatusDelivered, "admin")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	o, err := r.Advance(ctx, "o1", order.StatusPlaced, order.StatusOnWay, "admin")
	require.NoError(t, err)
	assert.Equal(t, order.StatusOnWay, o.Status)
}

func TestFreezeAndRestore(t *testing.T) {
	r := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, newOrder(t, "o1", order.PaymentCash)))

	frozen, err := r.Freeze(ctx, "o1", "root")
	require.NoError(t, err)
	assert.NotNil(t, frozen.FreezedAt)
	assert.Nil(t, frozen.RestoredAt)

	restored, err := r.Restore(ctx, "o1", "root")
	require.NoError(t, err)
	assert.Nil(t, restored.FreezedAt)
	assert.NotNil(t, restored.RestoredAt)
}

func TestPaymentGatewayWebhookSignature(t *testing.T) {
	g := NewPaymentGateway("whsec_test")
	body := []byte(`{"type":"checkout.session.completed","order_id":"o1"}`)

	event, err := g.VerifyWebhook(body, g.Sign(body))
	require.NoError(t, err)
	assert.Equal(t, payment.EventCheckoutCompleted, event.Type)
	assert.Equal(t, "o1", event.OrderID)

	_, err = g.VerifyWebhook(body, "deadbeef")
	assert.ErrorIs(t, err, payment.ErrVerificationFailed)

	_, err = g.VerifyWebhook([]byte("not json"), g.Sign([]byte("not json")))
	assert.ErrorIs(t, err, payment.ErrVerificationFailed)
}

func TestPaymentGatewayRefundLifecycle(t *testing.T) {
	g := NewPaymentGateway("whsec_test")
	ctx := context.Background()

	intent, err := g.CreatePaymentIntent(ctx, 180, "egp")
	require.NoError(t, err)

	require.NoError(t, g.ConfirmPaymentIntent(ctx, intent.ID))
	assert.ErrorIs(t, g.ConfirmPaymentIntent(ctx, "pi_unknown"), payment.ErrIntentNotFound)

	require.NoError(t, g.Refund(ctx, intent.ID))
	assert.True(t, g.Refunded(intent.ID))

	g.FailRefund = true
	assert.ErrorIs(t, g.Refund(ctx, intent.ID), payment.ErrRefundRejected)
}
