package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/pricing"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodQRIS           Method = "qris"
	MethodGopay          Method = "gopay"
	MethodLink           Method = "link"
	MethodBankTransfer   Method = "bank-transfer"
	MethodManualTransfer Method = "manual-transfer"
	MethodCashOnDelivery Method = "cash-on-delivery"
	MethodMembershipFee  Method = "membership-fee"
)

var methodAliases = map[string]Method{
	"bank":        MethodBankTransfer,
	"manual":      MethodManualTransfer,
	"cod":         MethodCashOnDelivery,
	"iuran_wajib": MethodMembershipFee,
}

func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m, ok := methodAliases[s]; ok {
		return m, nil
	}
	switch m := Method(s); m {
	case MethodQRIS, MethodGopay, MethodLink, MethodBankTransfer,
		MethodManualTransfer, MethodCashOnDelivery, MethodMembershipFee:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q: %w", s, domain.ErrInvalidRequest)
}

var (
	bankTransferBanks   = map[string]bool{"bni": true, "mandiri": true, "bri": true}
	manualTransferBanks = map[string]bool{"bni": true, "mandiri": true, "bri": true, "bca": true}
)

type Params struct {
	Bank  string
	Phone string
}

type Charge struct {
	OrderID  string
	Amount   decimal.Decimal
	Customer Customer
	Params   Params
}

// Result is the normalized outcome of any method. RedirectURL carries the
// QR image, deep link or hosted checkout page, whichever applies.
type Result struct {
	TransactionID string
	Status        string
	RedirectURL   string
	Extra         map[string]string
}

type Strategy interface {
	Validate(p Params) error
	Charge(ctx context.Context, c Charge) (Result, error)
	// Remote reports whether the gateway knows about the transaction.
	Remote() bool
}

type Registry struct {
	strategies map[Method]Strategy
}

// NewRegistry wires one strategy per method. newID generates the suffix of
// locally synthesized transaction ids.
func NewRegistry(gw Gateway, newID func() string) *Registry {
	return &Registry{strategies: map[Method]Strategy{
		MethodQRIS:           qrisMethod{gw: gw},
		MethodGopay:          gopayMethod{gw: gw},
		MethodLink:           linkMethod{gw: gw, newID: newID},
		MethodBankTransfer:   bankTransferMethod{gw: gw},
		MethodManualTransfer: manualTransferMethod{newID: newID},
		MethodCashOnDelivery: localSettledMethod{prefix: "cod_", newID: newID},
		MethodMembershipFee:  localSettledMethod{prefix: "iuran_", newID: newID},
	}}
}

func (r *Registry) Strategy(m Method) (Strategy, error) {
	s, ok := r.strategies[m]
	if !ok {
		return nil, fmt.Errorf("payment method %q not registered: %w", m, domain.ErrInvalidRequest)
	}
	return s, nil
}

func normalizeBank(bank string) string {
	return strings.ToLower(strings.TrimSpace(bank))
}

func requireBank(bank string, allowed map[string]bool) error {
	b := normalizeBank(bank)
	if b == "" {
		return fmt.Errorf("bank is required: %w", domain.ErrInvalidRequest)
	}
	if !allowed[b] {
		return fmt.Errorf("bank %q: %w", b, domain.ErrUnsupportedBank)
	}
	return nil
}

func actionURL(actions []Action, names ...string) string {
	for _, name := range names {
		for _, a := range actions {
			if a.Name == name && a.URL != "" {
				return a.URL
			}
		}
	}
	return ""
}

func statusOrPending(s string) string {
	if s == "" {
		return domain.PaymentPending
	}
	return strings.ToLower(s)
}

type qrisMethod struct{ gw Gateway }

func (qrisMethod) Validate(Params) error { return nil }
func (qrisMethod) Remote() bool          { return true }

func (m qrisMethod) Charge(ctx context.Context, c Charge) (Result, error) {
	resp, err := m.gw.Charge(ctx, ChargeRequest{
		PaymentType: "qris",
		OrderID:     c.OrderID,
		GrossAmount: pricing.GatewayAmount(c.Amount),
		Customer:    c.Customer,
	})
	if err != nil {
		return Result{}, err
	}
	qr := actionURL(resp.Actions, "generate-qr-code")
	if qr == "" && len(resp.Actions) > 0 {
		qr = resp.Actions[0].URL
	}
	if qr == "" {
		return Result{}, fmt.Errorf("qris: no qr action in response: %w", ErrGatewayResponse)
	}
	return Result{
		TransactionID: resp.TransactionID,
		Status:        statusOrPending(resp.TransactionStatus),
		RedirectURL:   qr,
	}, nil
}

type gopayMethod struct{ gw Gateway }

func (gopayMethod) Remote() bool { return true }

func (gopayMethod) Validate(p Params) error {
	if strings.TrimSpace(p.Phone) == "" {
		return fmt.Errorf("phone is required for gopay: %w", domain.ErrInvalidRequest)
	}
	return nil
}

func (m gopayMethod) Charge(ctx context.Context, c Charge) (Result, error) {
	cust := c.Customer
	cust.Phone = strings.TrimSpace(c.Params.Phone)
	resp, err := m.gw.Charge(ctx, ChargeRequest{
		PaymentType: "gopay",
		OrderID:     c.OrderID,
		GrossAmount: pricing.GatewayAmount(c.Amount),
		Customer:    cust,
	})
	if err != nil {
		return Result{}, err
	}
	link := actionURL(resp.Actions, "deeplink-redirect", "generate-qr-code")
	if link == "" && len(resp.Actions) > 0 {
		link = resp.Actions[0].URL
	}
	if link == "" {
		return Result{}, fmt.Errorf("gopay: no redirect action in response: %w", ErrGatewayResponse)
	}
	return Result{
		TransactionID: resp.TransactionID,
		Status:        statusOrPending(resp.TransactionStatus),
		RedirectURL:   link,
	}, nil
}

type linkMethod struct {
	gw    Gateway
	newID func() string
}

func (linkMethod) Validate(Params) error { return nil }
func (linkMethod) Remote() bool          { return true }

// Charge opens a hosted checkout. The session API returns no transaction
// id, so one is generated locally and the payment starts pending.
func (m linkMethod) Charge(ctx context.Context, c Charge) (Result, error) {
	resp, err := m.gw.CreateCheckout(ctx, CheckoutRequest{
		OrderID:     c.OrderID,
		GrossAmount: pricing.GatewayAmount(c.Amount),
		Customer:    c.Customer,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		TransactionID: "txn_" + m.newID(),
		Status:        domain.PaymentPending,
		RedirectURL:   resp.RedirectURL,
		Extra:         map[string]string{"checkout_token": resp.Token},
	}, nil
}

type bankTransferMethod struct{ gw Gateway }

func (bankTransferMethod) Remote() bool { return true }

func (bankTransferMethod) Validate(p Params) error {
	return requireBank(p.Bank, bankTransferBanks)
}

func (m bankTransferMethod) Charge(ctx context.Context, c Charge) (Result, error) {
	bank := normalizeBank(c.Params.Bank)
	resp, err := m.gw.Charge(ctx, ChargeRequest{
		PaymentType: "bank_transfer",
		OrderID:     c.OrderID,
		GrossAmount: pricing.GatewayAmount(c.Amount),
		Customer:    c.Customer,
		Bank:        bank,
	})
	if err != nil {
		return Result{}, err
	}
	if len(resp.VANumbers) == 0 || resp.VANumbers[0].VANumber == "" {
		return Result{}, fmt.Errorf("bank transfer: no virtual account in response: %w", ErrGatewayResponse)
	}
	va := resp.VANumbers[0]
	if va.Bank != "" {
		bank = va.Bank
	}
	return Result{
		TransactionID: resp.TransactionID,
		Status:        statusOrPending(resp.TransactionStatus),
		Extra:         map[string]string{"va_number": va.VANumber, "bank": bank},
	}, nil
}

type manualTransferMethod struct{ newID func() string }

func (manualTransferMethod) Remote() bool { return false }

func (manualTransferMethod) Validate(p Params) error {
	return requireBank(p.Bank, manualTransferBanks)
}

func (m manualTransferMethod) Charge(_ context.Context, c Charge) (Result, error) {
	return Result{
		TransactionID: "manual_" + m.newID(),
		Status:        domain.PaymentPending,
		Extra:         map[string]string{"manual_bank": normalizeBank(c.Params.Bank)},
	}, nil
}

// localSettledMethod settles on the spot without the gateway: cash on
// delivery and the membership fee.
type localSettledMethod struct {
	prefix string
	newID  func() string
}

func (localSettledMethod) Validate(Params) error { return nil }
func (localSettledMethod) Remote() bool          { return false }

func (m localSettledMethod) Charge(context.Context, Charge) (Result, error) {
	return Result{
		TransactionID: m.prefix + m.newID(),
		Status:        domain.PaymentSettlement,
	}, nil
}
