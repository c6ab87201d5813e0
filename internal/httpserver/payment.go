package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/logging"
	authmw "github.com/Skotchmaster/coop_market/internal/middleware/auth"
	"github.com/Skotchmaster/coop_market/internal/payment"
	"github.com/Skotchmaster/coop_market/internal/service"
	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/labstack/echo/v4"
)

type PaymentHTTP struct {
	Svc *service.PaymentService
}

func (h *PaymentHTTP) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "create.payment")

	var req transport.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "create_payment_error", "invalid body")
	}
	if req.UserID == 0 {
		return badRequest(c, l, "create_payment_error", "user_id required")
	}

	res, err := h.Svc.CreatePayment(ctx, service.DirectPaymentInput{
		UserID: req.UserID,
		Amount: req.Amount,
		Method: req.Method,
		Params: payment.Params{Bank: req.Bank, Phone: req.Phone},
	})
	if err != nil {
		return writeError(c, l, "create_payment_error", err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *PaymentHTTP) PayForCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pay.for.cart")

	var req transport.PayForCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "pay_for_cart_error", "invalid body")
	}
	if req.CartID == 0 {
		return badRequest(c, l, "pay_for_cart_error", "cart_id required")
	}

	guest := strings.TrimSpace(req.GuestID)
	var owner domain.Owner
	switch {
	case req.UserID != 0 && guest == "":
		owner = domain.UserOwner(req.UserID)
	case req.UserID == 0 && guest != "":
		owner = domain.GuestOwner(guest)
	default:
		return badRequest(c, l, "pay_for_cart_error", "exactly one of user_id or guest_id required")
	}

	res, err := h.Svc.PayForCart(ctx, service.CartPaymentInput{
		Owner:    owner,
		CartID:   req.CartID,
		Method:   req.Method,
		Params:   payment.Params{Bank: req.Bank, Phone: req.Phone},
		Items:    req.Items,
		Customer: req.Customer,
	})
	if err != nil {
		return writeError(c, l, "pay_for_cart_error", err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *PaymentHTTP) PayForMembership(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pay.for.membership")

	var req transport.MembershipPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "pay_for_membership_error", "invalid body")
	}
	if req.UserID == 0 {
		return badRequest(c, l, "pay_for_membership_error", "user_id required")
	}

	res, err := h.Svc.PayForMembership(ctx, service.MembershipPaymentInput{
		UserID: req.UserID,
		Method: req.Method,
		Params: payment.Params{Bank: req.Bank, Phone: req.Phone},
	})
	if err != nil {
		return writeError(c, l, "pay_for_membership_error", err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *PaymentHTTP) TopUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pay.for.topup")

	var req transport.TopUpRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "topup_error", "invalid body")
	}
	if req.UserID == 0 {
		return badRequest(c, l, "topup_error", "user_id required")
	}

	res, err := h.Svc.TopUp(ctx, service.TopUpInput{
		UserID: req.UserID,
		Amount: req.Amount,
		Method: req.Method,
	})
	if err != nil {
		return writeError(c, l, "topup_error", err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *PaymentHTTP) CheckStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "check.payment.status")

	view, err := h.Svc.CheckStatus(ctx, c.QueryParam("order_id"))
	if err != nil {
		return writeError(c, l, "check_payment_status_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *PaymentHTTP) ConfirmPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "confirm.payment")

	view, err := h.Svc.ConfirmPayment(ctx, c.Param("order_id"))
	if err != nil {
		return writeError(c, l, "confirm_payment_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *PaymentHTTP) CancelPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cancel.payment")

	view, err := h.Svc.CancelPayment(ctx, c.Param("order_id"))
	if err != nil {
		return writeError(c, l, "cancel_payment_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *PaymentHTTP) GetPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.payment")

	view, err := h.Svc.GetPayment(ctx, c.Param("order_id"))
	if err != nil {
		return writeError(c, l, "get_payment_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *PaymentHTTP) SearchTransactions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.transactions")

	userID, err := authmw.UserID(c)
	if err != nil {
		l.Error("search_transactions_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, transport.Response{Status: "error", Message: "unauthorized"})
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, l, "search_transactions_error", "page must be an integer")
	}
	size, ok := queryInt(c, "size", 20)
	if !ok {
		return badRequest(c, l, "search_transactions_error", "size must be an integer")
	}

	list, err := h.Svc.SearchTransactions(ctx, userID, c.QueryParam("q"), page, size)
	if err != nil {
		return writeError(c, l, "search_transactions_error", err)
	}
	return c.JSON(http.StatusOK, list)
}

func queryInt(c echo.Context, name string, def int) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
