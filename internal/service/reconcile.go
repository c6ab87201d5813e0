package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/coop_market/internal/cache"
	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/logging"
	"github.com/Skotchmaster/coop_market/internal/models"
	"github.com/Skotchmaster/coop_market/internal/payment"
	"github.com/Skotchmaster/coop_market/internal/repo"
	"github.com/Skotchmaster/coop_market/internal/search"
	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/Skotchmaster/coop_market/internal/util"
)

var errNoGatewayStatus = errors.New("gateway returned no transaction status")

// CheckStatus pulls the gateway status for orderID and applies it. The
// status row is moved with a compare-and-set, so concurrent or repeated
// calls cascade at most once.
func (s *PaymentService) CheckStatus(ctx context.Context, orderID string) (*transport.PaymentStatusView, error) {
	l := logging.FromContext(ctx).With("svc", "payment.reconcile", "order_id", orderID)

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order id is required: %w", domain.ErrInvalidRequest)
	}
	current, err := s.Repo.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !s.isRemote(current.Method) {
		return statusView(current), nil
	}

	next, err := s.queryStatus(ctx, orderID)
	if err != nil {
		l.Error("payment_gateway_error", "method", current.Method, "error", err)
		return nil, err
	}
	if next == current.Status {
		return statusView(current), nil
	}

	return s.transition(ctx, current, next)
}

// ConfirmPayment settles a pending payment whose method the gateway does
// not track (manual transfer), once the money has been seen by staff.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID string) (*transport.PaymentStatusView, error) {
	current, err := s.localPending(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, current, domain.PaymentSettlement)
}

// CancelPayment abandons a pending local payment. A cart payment gives its
// stock back and the cart becomes editable again.
func (s *PaymentService) CancelPayment(ctx context.Context, orderID string) (*transport.PaymentStatusView, error) {
	current, err := s.localPending(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, current, domain.PaymentCancel)
}

func (s *PaymentService) localPending(ctx context.Context, orderID string) (*models.Payment, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order id is required: %w", domain.ErrInvalidRequest)
	}
	p, err := s.Repo.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.isRemote(p.Method) {
		return nil, fmt.Errorf("%s payments are settled by the gateway: %w", p.Method, domain.ErrInvalidState)
	}
	if p.Status != domain.PaymentPending {
		return nil, fmt.Errorf("payment %s is %s: %w", p.OrderID, p.Status, domain.ErrInvalidState)
	}
	return p, nil
}

// transition moves current to next with a compare-and-set and applies the
// side effects of that move in the same transaction. Settlement cascades
// only out of an in-flight status: a payment that already failed has had
// its cart released, so a late success is recorded without touching it.
func (s *PaymentService) transition(ctx context.Context, current *models.Payment, next string) (*transport.PaymentStatusView, error) {
	l := logging.FromContext(ctx).With("svc", "payment.reconcile", "order_id", current.OrderID)

	var moved bool
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		paidAt := current.PaidAt
		if domain.IsSuccessStatus(next) && paidAt == nil {
			now := s.now()
			paidAt = &now
		}
		ok, err := tx.CompareAndSetStatus(ctx, current.OrderID, current.Status, next, paidAt)
		if err != nil || !ok {
			return err
		}
		moved = true

		inFlight := !domain.IsSuccessStatus(current.Status) && !domain.IsFailureStatus(current.Status)
		switch {
		case domain.IsSuccessStatus(next) && inFlight:
			return applySettlement(ctx, tx, current)
		case domain.IsSuccessStatus(next) && domain.IsFailureStatus(current.Status):
			l.Warn("settlement_after_release", "from", current.Status, "to", next, "cart_id", current.CartID)
		case domain.IsFailureStatus(next) && inFlight:
			return releaseCart(ctx, tx, current)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.GetPaymentByOrderID(ctx, current.OrderID)
	if err != nil {
		return nil, err
	}
	if moved {
		l.Info("payment_status_changed", "from", current.Status, "to", updated.Status)
		s.afterWrite(ctx, updated, "payment_status_changed")
	}
	return statusView(updated), nil
}

// GetPayment serves the stored status without contacting the gateway.
func (s *PaymentService) GetPayment(ctx context.Context, orderID string) (*transport.PaymentStatusView, error) {
	l := logging.FromContext(ctx)

	if s.Cache != nil {
		view, err := s.Cache.Get(ctx, orderID)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn("payment_cache_get_failed", "order_id", orderID, "error", err)
		}
	}

	p, err := s.Repo.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := statusView(p)
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, view); err != nil {
			l.Warn("payment_cache_set_failed", "order_id", orderID, "error", err)
		}
	}
	return view, nil
}

func (s *PaymentService) SearchTransactions(ctx context.Context, userID uint, text string, page, size int) (*transport.TransactionList, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidRequest)
	}
	if s.Index == nil {
		return nil, fmt.Errorf("transaction search is not configured: %w", domain.ErrInvalidState)
	}
	page, size, from := util.Calculate(page, size, 20, search.MaxPageSize)

	res, err := s.Index.SearchPayments(ctx, search.Query{
		UserID: userID,
		Text:   strings.TrimSpace(text),
		From:   from,
		Size:   size,
	})
	if err != nil {
		return nil, err
	}

	out := &transport.TransactionList{
		Total: res.Total,
		Page:  page,
		Size:  size,
		Items: make([]transport.PaymentStatusView, 0, len(res.Docs)),
	}
	for _, d := range res.Docs {
		p := models.Payment{
			OrderID:       d.OrderID,
			TransactionID: d.TransactionID,
			Method:        d.Method,
			Purpose:       d.Purpose,
			Status:        d.Status,
			Amount:        d.Amount,
			CreatedAt:     d.CreatedAt,
			PaidAt:        d.PaidAt,
		}
		out.Items = append(out.Items, *statusView(&p))
	}
	return out, nil
}

func (s *PaymentService) queryStatus(ctx context.Context, orderID string) (string, error) {
	qctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout())
	defer cancel()

	st, err := s.Gateway.Status(qctx, orderID)
	if err != nil {
		return "", fmt.Errorf("status %s: %w: %w", orderID, domain.ErrPaymentGateway, err)
	}
	status := strings.ToLower(strings.TrimSpace(st.TransactionStatus))
	if status == "" {
		return "", fmt.Errorf("status %s: %w: %w", orderID, domain.ErrPaymentGateway, errNoGatewayStatus)
	}
	return status, nil
}

func (s *PaymentService) isRemote(method string) bool {
	m, err := payment.ParseMethod(method)
	if err != nil {
		return false
	}
	strategy, err := s.Methods.Strategy(m)
	if err != nil {
		return false
	}
	return strategy.Remote()
}
