package coupon

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("coupon: not found")
	ErrExpired   = errors.New("coupon: outside validity window")
	ErrExhausted = errors.New("coupon: per-user redemption limit reached")
)

type Type string

const (
	TypePercent Type = "percent"
	TypeFixed   Type = "fixed"
)

// Coupon is a discount policy. Duration is the maximum number of redemptions
// per user; UsedBy holds one entry per redemption.
type Coupon struct {
	ID        string
	Name      string
	Slug      string
	Type      Type
	Discount  int64
	Duration  int
	StartDate time.Time
	EndDate   time.Time
	UsedBy    []string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable reports whether now falls within the validity window.
func (c *Coupon) Usable(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// RedemptionsBy counts how many slots the user has already consumed.
func (c *Coupon) RedemptionsBy(userID string) int {
	n := 0
	for _, id := range c.UsedBy {
		if id == userID {
			n++
		}
	}
	return n
}

// DiscountPercent converts the coupon to an equivalent percent of the given
// pre-discount total. Percent coupons return their magnitude directly; fixed
// coupons return discount/total*100.
func (c *Coupon) DiscountPercent(total int64) decimal.Decimal {
	d := decimal.NewFromInt(c.Discount)
	if c.Type == TypePercent {
		return d
	}
	if total <= 0 {
		return decimal.Zero
	}
	return d.Div(decimal.NewFromInt(total)).Mul(decimal.NewFromInt(100))
}

func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	clone := *c
	clone.UsedBy = append([]string(nil), c.UsedBy...)
	return &clone
}
