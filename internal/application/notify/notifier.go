package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/shopora/checkout/internal/domain/order"
	"github.com/shopora/checkout/internal/domain/outbox"
)

// Notifier consumes order lifecycle events and hands them to the email
// collaborator. Delivery itself is out of scope; this worker records what
// would be sent so the queue can be drained by the mailer.
type Notifier struct {
	log *zap.Logger
}

func New(logger *zap.Logger) *Notifier {
	return &Notifier{log: logger.With(zap.String("component", "notifier"))}
}

// Start registers the event subscriptions.
func (n *Notifier) Start(sub outbox.Subscriber) {
	sub.Subscribe(order.OrderCreatedEvent{}.EventName(), n.handleCreated)
	sub.Subscribe(order.OrderPaidEvent{}.EventName(), n.handlePaid)
	sub.Subscribe(order.OrderCanceledEvent{}.EventName(), n.handleCanceled)
}

func (n *Notifier) handleCreated(ctx context.Context, e outbox.Event) error {
	_ = ctx
	evt, ok := e.(order.OrderCreatedEvent)
	if !ok {
		return nil
	}
	n.log.Info("email_queued",
		zap.String("template", "order_confirmation"),
		zap.String("order_id", evt.OrderID),
		zap.String("order_code", evt.Code),
		zap.String("user_id", evt.UserID),
	)
	return nil
}

func (n *Notifier) handlePaid(ctx context.Context, e outbox.Event) error {
	_ = ctx
	evt, ok := e.(order.OrderPaidEvent)
	if !ok {
		return nil
	}
	n.log.Info("email_queued",
		zap.String("template", "payment_receipt"),
		zap.String("order_id", evt.OrderID),
	)
	return nil
}

func (n *Notifier) handleCanceled(ctx context.Context, e outbox.Event) error {
	_ = ctx
	evt, ok := e.(order.OrderCanceledEvent)
	if !ok {
		return nil
	}
	n.log.Info("email_queued",
		zap.String("template", "order_canceled"),
		zap.String("order_id", evt.OrderID),
		zap.Bool("refunded", evt.Refunded),
	)
	return nil
}
