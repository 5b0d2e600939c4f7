package order

import "time"

// OrderCreatedEvent is emitted after an order is persisted. Post-commit
// bookkeeping (coupon redemption, cart clearing) is keyed off it.
type OrderCreatedEvent struct {
	OrderID    string
	Code       string
	UserID     string
	CouponID   string
	Total      int64
	Subtotal   int64
	Payment    PaymentMethod
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		Code:       o.Code,
		UserID:     o.UserID,
		CouponID:   o.CouponID,
		Total:      o.Total,
		Subtotal:   o.Subtotal,
		Payment:    o.Payment,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted once per order when a verified gateway callback
// confirms payment.
type OrderPaidEvent struct {
	OrderID    string
	PaidAt     time.Time
	OccurredAt time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	evt := OrderPaidEvent{OrderID: o.ID, OccurredAt: time.Now().UTC()}
	if o.PaidAt != nil {
		evt.PaidAt = *o.PaidAt
	}
	return evt
}

// OrderCanceledEvent is emitted after a cancellation commits, before the
// compensating inventory and coupon credits run.
type OrderCanceledEvent struct {
	OrderID    string
	Reason     string
	Refunded   bool
	OccurredAt time.Time
}

func (OrderCanceledEvent) EventName() string { return "order.canceled" }

func NewOrderCanceledEvent(o *Order, refunded bool) OrderCanceledEvent {
	return OrderCanceledEvent{
		OrderID:    o.ID,
		Reason:     o.CancelReason,
		Refunded:   refunded,
		OccurredAt: time.Now().UTC(),
	}
}
