package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/coop_market/internal/domain"
	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/labstack/echo/v4"
)

func statusFor(kind string) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientStock, domain.KindUnsupportedBank, domain.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidState:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError logs err under event and answers with the error envelope.
// Gateway and internal failures never leak their detail to the client.
func writeError(c echo.Context, l *slog.Logger, event string, err error) error {
	kind := domain.Kind(err)
	status := statusFor(kind)

	msg := err.Error()
	switch kind {
	case domain.KindPaymentGateway:
		msg = "payment gateway unavailable"
	case domain.KindInternal:
		msg = "internal server error"
	}

	if status >= 500 {
		l.Error(event, "status", status, "kind", kind, "error", err)
	} else {
		l.Warn(event, "status", status, "kind", kind, "error", err)
	}
	return c.JSON(status, transport.Response{Status: "error", Kind: kind, Message: msg})
}

func badRequest(c echo.Context, l *slog.Logger, event, reason string) error {
	l.Warn(event, "status", http.StatusUnprocessableEntity, "reason", reason)
	return c.JSON(http.StatusUnprocessableEntity, transport.Response{
		Status:  "error",
		Kind:    domain.KindInvalidRequest,
		Message: reason,
	})
}

func paramID(c echo.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
