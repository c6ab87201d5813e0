package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/logging"
	authmw "github.com/Skotchmaster/coop_market/internal/middleware/auth"
	"github.com/Skotchmaster/coop_market/internal/service"
	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc *service.CartService
}

// owner resolves whose cart the request targets: the guest id from the
// path on guest routes, the authenticated user otherwise.
func (h *CartHTTP) owner(c echo.Context) (domain.Owner, error) {
	if g := c.Param("guest_id"); g != "" {
		return domain.GuestOwner(g), nil
	}
	id, err := authmw.UserID(c)
	if err != nil {
		return domain.Owner{}, err
	}
	return domain.UserOwner(id), nil
}

func (h *CartHTTP) unauthorized(c echo.Context, event string, err error) error {
	logging.FromContext(c.Request().Context()).Error(event, "status", 401, "error", err)
	return c.JSON(http.StatusUnauthorized, transport.Response{Status: "error", Message: "unauthorized"})
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	owner, err := h.owner(c)
	if err != nil {
		return h.unauthorized(c, "get_cart_error", err)
	}

	view, err := h.Svc.GetCart(ctx, owner)
	if err != nil {
		return writeError(c, l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) History(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.history")

	owner, err := h.owner(c)
	if err != nil {
		return h.unauthorized(c, "cart_history_error", err)
	}

	carts, err := h.Svc.History(ctx, owner)
	if err != nil {
		return writeError(c, l, "cart_history_error", err)
	}
	return c.JSON(http.StatusOK, carts)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart.item")

	owner, err := h.owner(c)
	if err != nil {
		return h.unauthorized(c, "add_item_error", err)
	}
	productID, ok := paramID(c, "product_id")
	if !ok {
		return badRequest(c, l, "add_item_error", "product_id must be a positive integer")
	}
	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "add_item_error", "invalid body")
	}

	view, err := h.Svc.AddItem(ctx, owner, productID, req.Quantity)
	if err != nil {
		return writeError(c, l, "add_item_error", err)
	}
	l.Info("cart_item_added", "cart_id", view.ID, "product_id", productID)
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.cart.item")

	owner, err := h.owner(c)
	if err != nil {
		return h.unauthorized(c, "update_item_error", err)
	}
	productID, ok := paramID(c, "product_id")
	if !ok {
		return badRequest(c, l, "update_item_error", "product_id must be a positive integer")
	}
	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "update_item_error", "invalid body")
	}

	view, err := h.Svc.UpdateItem(ctx, owner, productID, req.Quantity)
	if err != nil {
		return writeError(c, l, "update_item_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "remove.cart.item")

	owner, err := h.owner(c)
	if err != nil {
		return h.unauthorized(c, "remove_item_error", err)
	}
	productID, ok := paramID(c, "product_id")
	if !ok {
		return badRequest(c, l, "remove_item_error", "product_id must be a positive integer")
	}

	view, err := h.Svc.RemoveItem(ctx, owner, productID)
	if err != nil {
		return writeError(c, l, "remove_item_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) SetFulfillmentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.fulfillment")

	owner, err := h.owner(c)
	if err != nil {
		return h.unauthorized(c, "fulfillment_error", err)
	}
	cartID, ok := paramID(c, "cart_id")
	if !ok {
		return badRequest(c, l, "fulfillment_error", "cart_id must be a positive integer")
	}
	var req transport.FulfillmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "fulfillment_error", "invalid body")
	}

	view, err := h.Svc.SetFulfillmentStatus(ctx, owner, cartID, req.Status)
	if err != nil {
		return writeError(c, l, "fulfillment_error", err)
	}
	l.Info("cart_fulfillment_updated", "cart_id", cartID, "fulfillment_status", req.Status)
	return c.JSON(http.StatusOK, view)
}
