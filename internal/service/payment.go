package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/events"
	"github.com/Skotchmaster/coop_market/internal/logging"
	"github.com/Skotchmaster/coop_market/internal/models"
	"github.com/Skotchmaster/coop_market/internal/payment"
	"github.com/Skotchmaster/coop_market/internal/pricing"
	"github.com/Skotchmaster/coop_market/internal/repo"
	"github.com/Skotchmaster/coop_market/internal/search"
	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MembershipFeeKey = "iuran wajib"
	MinTopUp         = 1000
)

var defaultMembershipFee = decimal.NewFromInt(15000)

type StatusCache interface {
	Get(ctx context.Context, orderID string) (*transport.PaymentStatusView, error)
	Set(ctx context.Context, view *transport.PaymentStatusView) error
}

type PaymentIndexer interface {
	IndexPayment(ctx context.Context, p *models.Payment) error
	SearchPayments(ctx context.Context, q search.Query) (*search.Result, error)
}

type PaymentService struct {
	Repo    *repo.GormRepo
	Methods *payment.Registry
	Gateway payment.Gateway
	Events  EventPublisher
	Cache   StatusCache
	Index   PaymentIndexer

	GatewayTimeout        time.Duration
	MembershipFeeFallback decimal.Decimal

	NewID func() string
	Now   func() time.Time
}

type CartPaymentInput struct {
	Owner    domain.Owner
	CartID   uint
	Method   string
	Params   payment.Params
	Items    []transport.ItemSelection
	Customer *transport.Customer
}

type DirectPaymentInput struct {
	UserID uint
	Amount decimal.Decimal
	Method string
	Params payment.Params
}

type MembershipPaymentInput struct {
	UserID uint
	Method string
	Params payment.Params
}

type TopUpInput struct {
	UserID uint
	Amount decimal.Decimal
	Method string
}

// attempt is one payment about to be charged and persisted.
type attempt struct {
	orderID  string
	purpose  string
	method   payment.Method
	strategy payment.Strategy
	amount   decimal.Decimal
	customer payment.Customer
	params   payment.Params
	userID   *uint
	guestID  *string
	cartID   *uint
}

// CreatePayment charges an arbitrary amount on behalf of a user with no
// cart or account side effects. Methods that settle locally are refused
// since nothing on this path would ever follow up on them.
func (s *PaymentService) CreatePayment(ctx context.Context, in DirectPaymentInput) (*transport.PaymentResult, error) {
	method, strategy, err := s.resolve(in.Method, payment.MethodCashOnDelivery, payment.MethodMembershipFee)
	if err != nil {
		return nil, err
	}
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %w", domain.ErrInvalidRequest)
	}
	user, err := s.Repo.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	params := withPhoneFallback(in.Params, user.Phone)
	if err := strategy.Validate(params); err != nil {
		return nil, err
	}

	return s.chargeAndPersist(ctx, &attempt{
		orderID:  "ORD-" + s.newID(),
		purpose:  domain.PurposeDirect,
		method:   method,
		strategy: strategy,
		amount:   in.Amount.Round(pricing.CurrencyPlaces),
		customer: customerFromUser(user),
		params:   params,
		userID:   &user.ID,
	})
}

// PayForMembership charges the configured membership fee. A settled
// charge activates the membership in the same transaction.
func (s *PaymentService) PayForMembership(ctx context.Context, in MembershipPaymentInput) (*transport.PaymentResult, error) {
	method, strategy, err := s.resolve(in.Method, payment.MethodCashOnDelivery)
	if err != nil {
		return nil, err
	}
	user, err := s.Repo.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.MembershipStatus == domain.MembershipActive {
		return nil, fmt.Errorf("user %d membership already active: %w", user.ID, domain.ErrInvalidState)
	}
	params := withPhoneFallback(in.Params, user.Phone)
	if err := strategy.Validate(params); err != nil {
		return nil, err
	}
	fee, err := s.MembershipFee(ctx)
	if err != nil {
		return nil, err
	}

	return s.chargeAndPersist(ctx, &attempt{
		orderID:  "MEMB-" + s.newID(),
		purpose:  domain.PurposeMembership,
		method:   method,
		strategy: strategy,
		amount:   fee,
		customer: customerFromUser(user),
		params:   params,
		userID:   &user.ID,
	})
}

// TopUp starts a balance top-up. The balance is credited only when the
// payment settles.
func (s *PaymentService) TopUp(ctx context.Context, in TopUpInput) (*transport.PaymentResult, error) {
	method, err := payment.ParseMethod(in.Method)
	if err != nil {
		return nil, err
	}
	if method != payment.MethodQRIS && method != payment.MethodLink {
		return nil, fmt.Errorf("top-up supports qris or link, got %s: %w", method, domain.ErrInvalidRequest)
	}
	strategy, err := s.Methods.Strategy(method)
	if err != nil {
		return nil, err
	}
	if in.Amount.LessThan(decimal.NewFromInt(MinTopUp)) {
		return nil, fmt.Errorf("top-up amount must be at least %d: %w", MinTopUp, domain.ErrInvalidRequest)
	}
	user, err := s.Repo.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.Type != domain.UserTypeMember {
		return nil, fmt.Errorf("top-up is not available for %s accounts: %w", user.Type, domain.ErrInvalidState)
	}

	return s.chargeAndPersist(ctx, &attempt{
		orderID:  "TOPUP-" + s.newID(),
		purpose:  domain.PurposeTopUp,
		method:   method,
		strategy: strategy,
		amount:   in.Amount.Round(pricing.CurrencyPlaces),
		customer: customerFromUser(user),
		userID:   &user.ID,
	})
}

// PayForCart freezes the cart, decrements stock for every line and charges
// the total. The gateway call runs inside the transaction, so a failed or
// timed-out charge leaves stock, cart and payments untouched.
func (s *PaymentService) PayForCart(ctx context.Context, in CartPaymentInput) (*transport.PaymentResult, error) {
	l := logging.FromContext(ctx).With("svc", "payment.cart")

	if err := in.Owner.Validate(); err != nil {
		return nil, err
	}
	method, strategy, err := s.resolve(in.Method, payment.MethodMembershipFee)
	if err != nil {
		return nil, err
	}
	if err := validateSelection(in.Items); err != nil {
		return nil, err
	}

	var customer payment.Customer
	var userID *uint
	var guestID *string
	if in.Owner.IsGuest() {
		customer = customerFromRequest(in.Customer)
		g := in.Owner.GuestID
		guestID = &g
	} else {
		user, err := s.Repo.GetUser(ctx, in.Owner.UserID)
		if err != nil {
			return nil, err
		}
		customer = customerFromUser(user)
		userID = &user.ID
	}
	params := withPhoneFallback(in.Params, customer.Phone)
	if err := strategy.Validate(params); err != nil {
		return nil, err
	}

	var (
		result *transport.PaymentResult
		stored *models.Payment
	)
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockCart(ctx, in.CartID, in.Owner.Key())
		if err != nil {
			return err
		}
		if cart.Paid || cart.Status != domain.CartOpen {
			return fmt.Errorf("cart %d is %s: %w", cart.ID, cart.Status, domain.ErrInvalidState)
		}

		if len(in.Items) > 0 {
			if err := applySelection(ctx, tx, cart.ID, in.Items); err != nil {
				return err
			}
		}

		items, err := recomputeTotal(ctx, tx, cart)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("cart %d is empty: %w", cart.ID, domain.ErrInvalidRequest)
		}
		for _, it := range items {
			if err := tx.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		a := &attempt{
			orderID:  "CART-" + s.newID(),
			purpose:  domain.PurposeCart,
			method:   method,
			strategy: strategy,
			amount:   cart.TotalPrice,
			customer: customer,
			params:   params,
			userID:   userID,
			guestID:  guestID,
			cartID:   &cart.ID,
		}
		res, err := s.charge(ctx, a)
		if err != nil {
			return err
		}
		stored, err = s.persist(ctx, tx, a, res)
		if err != nil {
			return err
		}
		if !domain.IsSuccessStatus(stored.Status) {
			if _, err := tx.SetCartStatus(ctx, cart.ID, domain.CartOpen, domain.CartAwaitingPayment); err != nil {
				return err
			}
		}
		result = paymentResult(stored, res)
		return nil
	})
	if err != nil {
		if domain.Kind(err) == domain.KindPaymentGateway {
			l.Error("payment_gateway_error", "cart_id", in.CartID, "method", method, "error", err)
		}
		return nil, err
	}

	s.afterWrite(ctx, stored, "payment_initiated")
	l.Info("cart_payment_initiated", "order_id", stored.OrderID, "method", method, "status", stored.Status)
	return result, nil
}

// MembershipFee reads the configured fee, falling back to a fixed amount
// when the setting is absent or not a positive integer.
func (s *PaymentService) MembershipFee(ctx context.Context) (decimal.Decimal, error) {
	fallback := s.MembershipFeeFallback
	if !fallback.IsPositive() {
		fallback = defaultMembershipFee
	}
	raw, ok, err := s.Repo.ConfigValue(ctx, MembershipFeeKey)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return fallback, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		logging.FromContext(ctx).Warn("membership_fee_unparsable", "value", raw)
		return fallback, nil
	}
	return decimal.NewFromInt(n), nil
}

func (s *PaymentService) resolve(raw string, disallowed ...payment.Method) (payment.Method, payment.Strategy, error) {
	method, err := payment.ParseMethod(raw)
	if err != nil {
		return "", nil, err
	}
	if slices.Contains(disallowed, method) {
		return "", nil, fmt.Errorf("%s is not available here: %w", method, domain.ErrInvalidRequest)
	}
	strategy, err := s.Methods.Strategy(method)
	if err != nil {
		return "", nil, err
	}
	return method, strategy, nil
}

func (s *PaymentService) chargeAndPersist(ctx context.Context, a *attempt) (*transport.PaymentResult, error) {
	l := logging.FromContext(ctx).With("svc", "payment."+a.purpose)

	res, err := s.charge(ctx, a)
	if err != nil {
		l.Error("payment_gateway_error", "order_id", a.orderID, "method", a.method, "error", err)
		return nil, err
	}

	var stored *models.Payment
	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		stored, err = s.persist(ctx, tx, a, res)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, stored, "payment_initiated")
	l.Info("payment_initiated", "order_id", stored.OrderID, "method", a.method, "status", stored.Status)
	return paymentResult(stored, res), nil
}

// charge runs the strategy under the gateway timeout. Any failure of a
// remote method is reported as a gateway error.
func (s *PaymentService) charge(ctx context.Context, a *attempt) (payment.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout())
	defer cancel()

	res, err := a.strategy.Charge(cctx, payment.Charge{
		OrderID:  a.orderID,
		Amount:   a.amount,
		Customer: a.customer,
		Params:   a.params,
	})
	if err != nil {
		return payment.Result{}, fmt.Errorf("%s charge %s: %w: %w", a.method, a.orderID, domain.ErrPaymentGateway, err)
	}
	return res, nil
}

// persist stores the payment and, when the method settled on the spot,
// applies the settlement cascade in the same transaction.
func (s *PaymentService) persist(ctx context.Context, tx *repo.GormRepo, a *attempt, res payment.Result) (*models.Payment, error) {
	p := &models.Payment{
		OrderID:       a.orderID,
		TransactionID: res.TransactionID,
		Purpose:       a.purpose,
		Method:        string(a.method),
		Status:        res.Status,
		Amount:        a.amount,
		UserID:        a.userID,
		GuestID:       a.guestID,
		CartID:        a.cartID,
		Extra:         models.Extra(res.Extra),
	}
	if domain.IsSuccessStatus(p.Status) {
		now := s.now()
		p.PaidAt = &now
	}
	if err := tx.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("store payment %s: %w", a.orderID, err)
	}
	if domain.IsSuccessStatus(p.Status) {
		if err := applySettlement(ctx, tx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// applySettlement runs once per payment, on its first success status.
func applySettlement(ctx context.Context, tx *repo.GormRepo, p *models.Payment) error {
	switch p.Purpose {
	case domain.PurposeCart:
		if p.CartID == nil {
			return nil
		}
		fulfillment := domain.FulfillmentAwaitingStaff
		if p.Method == string(payment.MethodCashOnDelivery) {
			fulfillment = domain.FulfillmentToBeShipped
		}
		_, err := tx.MarkCartPaid(ctx, *p.CartID, fulfillment)
		return err
	case domain.PurposeMembership:
		if p.UserID == nil {
			return nil
		}
		return tx.ActivateMembership(ctx, *p.UserID)
	case domain.PurposeTopUp:
		if p.UserID == nil {
			return nil
		}
		return tx.CreditBalance(ctx, *p.UserID, p.Amount)
	}
	return nil
}

// releaseCart undoes a failed cart payment: stock goes back and the cart
// reopens for editing.
func releaseCart(ctx context.Context, tx *repo.GormRepo, p *models.Payment) error {
	if p.Purpose != domain.PurposeCart || p.CartID == nil {
		return nil
	}
	reopened, err := tx.SetCartStatus(ctx, *p.CartID, domain.CartAwaitingPayment, domain.CartOpen)
	if err != nil || !reopened {
		return err
	}
	items, err := tx.CartItems(ctx, *p.CartID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func applySelection(ctx context.Context, tx *repo.GormRepo, cartID uint, sel []transport.ItemSelection) error {
	keep := make([]uint, 0, len(sel))
	for _, it := range sel {
		if _, err := tx.FindItem(ctx, cartID, it.ProductID); err != nil {
			return err
		}
		if err := tx.SetItemQuantity(ctx, cartID, it.ProductID, it.Quantity); err != nil {
			return err
		}
		keep = append(keep, it.ProductID)
	}
	return tx.KeepOnlyItems(ctx, cartID, keep)
}

func validateSelection(sel []transport.ItemSelection) error {
	seen := make(map[uint]bool, len(sel))
	for _, it := range sel {
		if it.ProductID == 0 || it.Quantity <= 0 {
			return fmt.Errorf("selected items need a product id and a positive quantity: %w", domain.ErrInvalidRequest)
		}
		if seen[it.ProductID] {
			return fmt.Errorf("product %d selected twice: %w", it.ProductID, domain.ErrInvalidRequest)
		}
		seen[it.ProductID] = true
	}
	return nil
}

func (s *PaymentService) afterWrite(ctx context.Context, p *models.Payment, eventType string) {
	l := logging.FromContext(ctx)
	view := statusView(p)

	if s.Cache != nil {
		if err := s.Cache.Set(context.WithoutCancel(ctx), view); err != nil {
			l.Warn("payment_cache_set_failed", "order_id", p.OrderID, "error", err)
		}
	}
	if s.Index != nil {
		if err := s.Index.IndexPayment(context.WithoutCancel(ctx), p); err != nil {
			l.Warn("payment_index_failed", "order_id", p.OrderID, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicPayment, p.OrderID, eventType, view)
}

func (s *PaymentService) gatewayTimeout() time.Duration {
	if s.GatewayTimeout > 0 {
		return s.GatewayTimeout
	}
	return 15 * time.Second
}

func (s *PaymentService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func withPhoneFallback(p payment.Params, phone string) payment.Params {
	if strings.TrimSpace(p.Phone) == "" {
		p.Phone = phone
	}
	return p
}

func customerFromUser(u *models.User) payment.Customer {
	first, last := splitName(u.Fullname)
	return payment.Customer{FirstName: first, LastName: last, Email: u.Email, Phone: u.Phone}
}

func customerFromRequest(c *transport.Customer) payment.Customer {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		out := payment.Customer{FirstName: "Guest"}
		if c != nil {
			out.Email, out.Phone = c.Email, c.Phone
		}
		return out
	}
	first, last := splitName(c.Name)
	return payment.Customer{FirstName: first, LastName: last, Email: c.Email, Phone: c.Phone}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func paymentResult(p *models.Payment, res payment.Result) *transport.PaymentResult {
	return &transport.PaymentResult{
		OrderID:       p.OrderID,
		TransactionID: p.TransactionID,
		Method:        p.Method,
		Status:        p.Status,
		Amount:        p.Amount,
		RedirectURL:   res.RedirectURL,
		Extra:         res.Extra,
		CartID:        p.CartID,
	}
}

func statusView(p *models.Payment) *transport.PaymentStatusView {
	date := p.CreatedAt
	if p.PaidAt != nil {
		date = *p.PaidAt
	}
	return &transport.PaymentStatusView{
		OrderID:       p.OrderID,
		TransactionID: p.TransactionID,
		Method:        p.Method,
		Purpose:       p.Purpose,
		Status:        p.Status,
		Amount:        p.Amount,
		PaymentDate:   date,
	}
}
