package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItems() []LineItem {
	return []LineItem{
		{ProductID: "p1", Name: "Widget", Quantity: 2, UnitPrice: 100},
		{ProductID: "p2", Name: "Gadget", Quantity: 1, UnitPrice: 250},
	}
}

func TestNewComputesTotals(t *testing.T) {
	o, err := New("id-1", "CODE0001", "user-1", "addr", "phone", "", PaymentCard, validItems())
	require.NoError(t, err)

	assert.Equal(t, int64(450), o.Total)
	assert.Equal(t, int64(450), o.Subtotal)
	assert.Equal(t, int64(200), o.Items[0].LineTotal)
	assert.Equal(t, int64(250), o.Items[1].LineTotal)
	assert.True(t, o.DiscountPercent.IsZero())
}

func TestNewInitialStatusByPaymentMethod(t *testing.T) {
	card, err := New("id-1", "C1", "u", "addr", "phone", "", PaymentCard, validItems())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, card.Status)

	cash, err := New("id-2", "C2", "u", "addr", "phone", "", PaymentCash, validItems())
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, cash.Status)
}

func TestNewValidation(t *testing.T) {
	_, err := New("id", "c", "u", "addr", "phone", "", PaymentCash, nil)
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("id", "c", "u", "", "phone", "", PaymentCash, validItems())
	assert.ErrorIs(t, err, ErrAddressRequired)

	_, err = New("id", "c", "u", "addr", "", "", PaymentCash, validItems())
	assert.ErrorIs(t, err, ErrPhoneRequired)

	_, err = New("id", "c", "u", "addr", "phone", "", PaymentCash,
		[]LineItem{{ProductID: "p", Quantity: 0, UnitPrice: 10}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New("id", "c", "u", "addr", "phone", "", PaymentCash,
		[]LineItem{{ProductID: "p", Quantity: 1, UnitPrice: -1}})
	assert.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestApplyDiscount(t *testing.T) {
	o, err := New("id", "c", "u", "addr", "phone", "", PaymentCard,
		[]LineItem{{ProductID: "p", Quantity: 2, UnitPrice: 100}})
	require.NoError(t, err)

	require.NoError(t, o.ApplyDiscount(decimal.NewFromInt(10)))
	assert.Equal(t, int64(200), o.Total)
	assert.Equal(t, int64(180), o.Subtotal)
}

func TestApplyDiscountRejectedOncePaid(t *testing.T) {
	o, err := New("id", "c", "u", "addr", "phone", "", PaymentCard, validItems())
	require.NoError(t, err)

	now := time.Now().UTC()
	o.PaidAt = &now
	assert.ErrorIs(t, o.ApplyDiscount(decimal.NewFromInt(5)), ErrAlreadyPaid)
}

func TestSubtotalForRounding(t *testing.T) {
	// 33% of 100 is 33, leaving 67.
	assert.Equal(t, int64(67), SubtotalFor(100, decimal.NewFromInt(33)))
	// 12.5% of 999 is 124.875; 874.125 rounds to 874.
	pct, err := decimal.NewFromString("12.5")
	require.NoError(t, err)
	assert.Equal(t, int64(874), SubtotalFor(999, pct))
	// Zero percent leaves the total untouched.
	assert.Equal(t, int64(450), SubtotalFor(450, decimal.Zero))
	// Full discount clears the amount due.
	assert.Equal(t, int64(0), SubtotalFor(450, decimal.NewFromInt(100)))
}

func TestStatusCancelable(t *testing.T) {
	assert.True(t, StatusPending.Cancelable())
	assert.True(t, StatusPlaced.Cancelable())
	assert.True(t, StatusOnWay.Cancelable())
	assert.False(t, StatusDelivered.Cancelable())
	assert.False(t, StatusCanceled.Cancelable())
}

func TestStatusNext(t *testing.T) {
	next, err := StatusPlaced.Next()
	require.NoError(t, err)
	assert.Equal(t, StatusOnWay, next)

	next, err = StatusOnWay.Next()
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, next)

	for _, s := range []Status{StatusPending, StatusDelivered, StatusCanceled} {
		_, err := s.Next()
		assert.ErrorIs(t, err, ErrInvalidTransition, s.String())
	}
}

func TestCloneIsDeep(t *testing.T) {
	o, err := New("id", "c", "u", "addr", "phone", "", PaymentCash, validItems())
	require.NoError(t, err)
	now := time.Now().UTC()
	o.PaidAt = &now

	clone := o.Clone()
	clone.Items[0].Quantity = 99
	*clone.PaidAt = now.Add(time.Hour)

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, o.PaidAt.Equal(now))
}
