package payment

import "context"

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ChargeRequest is a Core API charge. PaymentType selects which
// method block is sent alongside the transaction details.
type ChargeRequest struct {
	PaymentType string
	OrderID     string
	GrossAmount int64
	Customer    Customer
	Bank        string
}

type Action struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

type ChargeResponse struct {
	StatusCode        string     `json:"status_code"`
	StatusMessage     string     `json:"status_message"`
	TransactionID     string     `json:"transaction_id"`
	OrderID           string     `json:"order_id"`
	PaymentType       string     `json:"payment_type"`
	TransactionStatus string     `json:"transaction_status"`
	TransactionTime   string     `json:"transaction_time"`
	Actions           []Action   `json:"actions"`
	VANumbers         []VANumber `json:"va_numbers"`
}

type CheckoutRequest struct {
	OrderID     string
	GrossAmount int64
	Customer    Customer
}

type CheckoutResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type StatusResponse struct {
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	TransactionID     string `json:"transaction_id"`
	OrderID           string `json:"order_id"`
	PaymentType       string `json:"payment_type"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	GrossAmount       string `json:"gross_amount"`
}

// Gateway is the external payment processor.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
	Status(ctx context.Context, orderID string) (*StatusResponse, error)
}
