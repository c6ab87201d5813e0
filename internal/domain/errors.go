package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnsupportedBank   = errors.New("unsupported bank")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrPaymentGateway    = errors.New("payment gateway error")
	ErrInvalidState      = errors.New("invalid state")
)

const (
	KindNotFound          = "not_found"
	KindInsufficientStock = "insufficient_stock"
	KindUnsupportedBank   = "unsupported_bank"
	KindInvalidRequest    = "invalid_request"
	KindPaymentGateway    = "payment_gateway_error"
	KindInvalidState      = "invalid_state"
	KindInternal          = "internal"
)

// Kind reports the machine-checkable category of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrUnsupportedBank):
		return KindUnsupportedBank
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrPaymentGateway):
		return KindPaymentGateway
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	default:
		return KindInternal
	}
}
