package checkout

import (
	"errors"
	"fmt"
)

// Validation-class errors abort the whole operation before any persistent
// side effect commits; partial side effects are compensated first.
var (
	ErrEmptyCart           = errors.New("checkout: cart is empty")
	ErrCouponNotFound      = errors.New("checkout: coupon not found")
	ErrCouponExpired       = errors.New("checkout: coupon outside validity window")
	ErrCouponExhausted     = errors.New("checkout: coupon redemption limit reached")
	ErrOrderNotFound       = errors.New("checkout: order not found")
	ErrOrderNotEligible    = errors.New("checkout: order not eligible for payment")
	ErrOrderNotCancelable  = errors.New("checkout: order can no longer be canceled")
	ErrPaymentVerification = errors.New("checkout: payment webhook verification failed")
	ErrRefundFailed        = errors.New("checkout: refund failed")
	ErrForbidden           = errors.New("checkout: caller lacks the required capability")
)

// InsufficientStockError names the offending product; all decrements applied
// earlier in the same request are rolled back before it surfaces.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("checkout: insufficient stock for product %s", e.ProductID)
}
