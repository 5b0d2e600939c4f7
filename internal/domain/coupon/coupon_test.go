package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func window(start, end time.Duration) (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(start), now.Add(end)
}

func TestUsable(t *testing.T) {
	start, end := window(-time.Hour, time.Hour)
	c := &Coupon{StartDate: start, EndDate: end}

	now := time.Now().UTC()
	assert.True(t, c.Usable(now))
	assert.False(t, c.Usable(now.Add(-2*time.Hour)))
	assert.False(t, c.Usable(now.Add(2*time.Hour)))
	assert.True(t, c.Usable(start))
	assert.True(t, c.Usable(end))
}

func TestRedemptionsBy(t *testing.T) {
	c := &Coupon{UsedBy: []string{"a", "b", "a"}}
	assert.Equal(t, 2, c.RedemptionsBy("a"))
	assert.Equal(t, 1, c.RedemptionsBy("b"))
	assert.Equal(t, 0, c.RedemptionsBy("c"))
}

func TestDiscountPercent(t *testing.T) {
	pct := &Coupon{Type: TypePercent, Discount: 15}
	assert.True(t, pct.DiscountPercent(1000).Equal(decimal.NewFromInt(15)))

	// A 20-off fixed coupon on a 200 total is an equivalent 10 percent.
	fixed := &Coupon{Type: TypeFixed, Discount: 20}
	assert.True(t, fixed.DiscountPercent(200).Equal(decimal.NewFromInt(10)))

	// 25 off 150 is 16.67 percent within decimal division precision.
	fixed.Discount = 25
	got := fixed.DiscountPercent(150)
	want := decimal.NewFromInt(25).
		Div(decimal.NewFromInt(150)).
		Mul(decimal.NewFromInt(100))
	assert.True(t, got.Equal(want), "got %s want %s", got, want)

	assert.True(t, fixed.DiscountPercent(0).IsZero())
}

func TestCloneIsDeep(t *testing.T) {
	c := &Coupon{ID: "c1", UsedBy: []string{"a"}}
	clone := c.Clone()
	clone.UsedBy = append(clone.UsedBy, "b")
	assert.Len(t, c.UsedBy, 1)
}
