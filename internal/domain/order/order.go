package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: already exists")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrInvalidUnitPrice  = errors.New("order: unit price must be zero or greater")
	ErrNoItems           = errors.New("order: at least one line item is required")
	ErrAddressRequired   = errors.New("order: shipping address is required")
	ErrPhoneRequired     = errors.New("order: contact phone is required")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrAlreadyPaid       = errors.New("order: financial fields are immutable once paid")
)

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// LineItem is a snapshot of one cart line at purchase time. UnitPrice is
// captured from the product when the order is created and never re-derived.
type LineItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// Order is the aggregate root for a checkout. All monetary amounts are in
// minor currency units.
type Order struct {
	ID              string
	Code            string
	UserID          string
	Address         string
	Phone           string
	Note            string
	CancelReason    string
	CouponID        string
	DiscountPercent decimal.Decimal
	Total           int64
	Subtotal        int64
	Payment         PaymentMethod
	PaymentIntentID string
	Status          Status
	Items           []LineItem
	PaidAt          *time.Time
	FreezedAt       *time.Time
	RestoredAt      *time.Time
	CreatedBy       string
	UpdatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func New(id, code, userID, address, phone, note string, payment PaymentMethod, items []LineItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if address == "" {
		return nil, ErrAddressRequired
	}
	if phone == "" {
		return nil, ErrPhoneRequired
	}

	var total int64
	snapshot := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice < 0 {
			return nil, ErrInvalidUnitPrice
		}
		it.LineTotal = it.UnitPrice * int64(it.Quantity)
		total += it.LineTotal
		snapshot = append(snapshot, it)
	}

	// Cash orders are confirmed immediately; card orders wait for the gateway.
	status := StatusPlaced
	if payment == PaymentCard {
		status = StatusPending
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		Code:      code,
		UserID:    userID,
		Address:   address,
		Phone:     phone,
		Note:      note,
		Payment:   payment,
		Status:    status,
		Items:     snapshot,
		Total:     total,
		Subtotal:  total,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyDiscount records the discount percent and derives the subtotal:
// subtotal = total - total*(percent/100), rounded to the nearest minor unit.
func (o *Order) ApplyDiscount(percent decimal.Decimal) error {
	if o.PaidAt != nil {
		return ErrAlreadyPaid
	}
	o.DiscountPercent = percent
	o.Subtotal = SubtotalFor(o.Total, percent)
	o.touch()
	return nil
}

// SubtotalFor derives the amount due after a percent discount.
func SubtotalFor(total int64, percent decimal.Decimal) int64 {
	t := decimal.NewFromInt(total)
	discount := t.Mul(percent).Div(decimal.NewFromInt(100))
	return t.Sub(discount).Round(0).IntPart()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]LineItem(nil), o.Items...)
	clone.PaidAt = cloneTime(o.PaidAt)
	clone.FreezedAt = cloneTime(o.FreezedAt)
	clone.RestoredAt = cloneTime(o.RestoredAt)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
