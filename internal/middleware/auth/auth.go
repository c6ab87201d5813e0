package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Skotchmaster/coop_market/internal/tokens"
	"github.com/labstack/echo/v4"
)

const (
	AccessCookie = "accessToken"
	ctxUserID    = "user_id"
	ctxRole      = "role"
)

var ErrUnauthorized = errors.New("unauthorized")

type SimpleAuth struct {
	JWTSecret []byte
}

func NewSimpleAuth(secret []byte) *SimpleAuth {
	return &SimpleAuth{JWTSecret: secret}
}

func (m *SimpleAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie(AccessCookie)
		if err != nil || accessCookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err != nil || claims == nil {
			c.SetCookie(DeleteCookie(AccessCookie, "/"))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxRole, claims.Role)

		return next(c)
	}
}

// UserID returns the authenticated caller set by RequireAuth.
func UserID(c echo.Context) (uint, error) {
	s, ok := c.Get(ctxUserID).(string)
	if !ok || s == "" {
		return 0, ErrUnauthorized
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrUnauthorized
	}
	return uint(id), nil
}

func DeleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
