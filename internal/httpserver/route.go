package httpserver

import (
	"context"
	"net/http"

	authmw "github.com/Skotchmaster/coop_market/internal/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	CartHandler    *CartHTTP
	PaymentHandler *PaymentHTTP
	JWTSecret      []byte
	// Ready reports whether backing stores answer. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := authmw.NewSimpleAuth(d.JWTSecret)
	api := e.Group("/api/v1")

	cart := api.Group("/cart")
	cart.Use(authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.GET("/history", d.CartHandler.History)
	cart.POST("/products/:product_id", d.CartHandler.AddItem)
	cart.PUT("/products/:product_id", d.CartHandler.UpdateItem)
	cart.DELETE("/products/:product_id", d.CartHandler.RemoveItem)
	cart.PUT("/:cart_id/status", d.CartHandler.SetFulfillmentStatus)

	guest := api.Group("/guest/cart/:guest_id")
	guest.GET("", d.CartHandler.GetCart)
	guest.POST("/products/:product_id", d.CartHandler.AddItem)
	guest.PUT("/products/:product_id", d.CartHandler.UpdateItem)
	guest.DELETE("/products/:product_id", d.CartHandler.RemoveItem)
	guest.PUT("/:cart_id/status", d.CartHandler.SetFulfillmentStatus)

	pay := api.Group("/payment")
	pay.POST("/create-payment", d.PaymentHandler.CreatePayment)
	pay.POST("/pay-for-cart", d.PaymentHandler.PayForCart)
	pay.POST("/pay-for-membership", d.PaymentHandler.PayForMembership)
	pay.POST("/pay-for-topup", d.PaymentHandler.TopUp)
	pay.GET("/check-payment-status", d.PaymentHandler.CheckStatus)
	pay.GET("/transactions", d.PaymentHandler.SearchTransactions, authMW.RequireAuth)
	pay.POST("/:order_id/confirm", d.PaymentHandler.ConfirmPayment, authMW.RequireAuth)
	pay.POST("/:order_id/cancel", d.PaymentHandler.CancelPayment, authMW.RequireAuth)
	pay.GET("/:order_id", d.PaymentHandler.GetPayment)
}
