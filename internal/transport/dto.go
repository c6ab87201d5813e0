package transport

import (
	"time"

	"github.com/shopspring/decimal"
)

type Response struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type FulfillmentRequest struct {
	Status string `json:"status"`
}

type CartItemView struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	ID                uint            `json:"id"`
	UserID            *uint           `json:"user_id,omitempty"`
	GuestID           *string         `json:"guest_id,omitempty"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Status            string          `json:"status"`
	Paid              bool            `json:"paid"`
	FulfillmentStatus string          `json:"fulfillment_status,omitempty"`
	Items             []CartItemView  `json:"items"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ItemSelection struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type CreatePaymentRequest struct {
	UserID uint            `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"payment_method"`
	Bank   string          `json:"bank"`
	Phone  string          `json:"phone"`
}

type PayForCartRequest struct {
	CartID   uint            `json:"cart_id"`
	UserID   uint            `json:"user_id"`
	GuestID  string          `json:"guest_id"`
	Method   string          `json:"payment_method"`
	Bank     string          `json:"bank"`
	Phone    string          `json:"phone"`
	Items    []ItemSelection `json:"items"`
	Customer *Customer       `json:"customer"`
}

type MembershipPaymentRequest struct {
	UserID uint   `json:"user_id"`
	Method string `json:"payment_method"`
	Bank   string `json:"bank"`
	Phone  string `json:"phone"`
}

type TopUpRequest struct {
	UserID uint            `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"payment_method"`
}

type PaymentResult struct {
	OrderID       string            `json:"order_id"`
	TransactionID string            `json:"transaction_id"`
	Method        string            `json:"payment_method"`
	Status        string            `json:"payment_status"`
	Amount        decimal.Decimal   `json:"amount"`
	RedirectURL   string            `json:"payment_url,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
	CartID        *uint             `json:"cart_id,omitempty"`
}

type PaymentStatusView struct {
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Method        string          `json:"payment_method"`
	Purpose       string          `json:"purpose"`
	Status        string          `json:"payment_status"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
}

type TransactionList struct {
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
	Items []PaymentStatusView `json:"items"`
}
