package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/coop_market/internal/tokens"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func run(t *testing.T, cookie *http.Cookie) (*httptest.ResponseRecorder, uint, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got uint
	h := NewSimpleAuth(secret).RequireAuth(func(c echo.Context) error {
		id, err := UserID(c)
		got = id
		return err
	})
	return rec, got, h(c)
}

func TestRequireAuth(t *testing.T) {
	valid, err := tokens.NewAccessToken("7", "pengguna", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)
	expired, err := tokens.NewAccessToken("7", "pengguna", time.Now().Add(-time.Minute), secret)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		_, id, err := run(t, &http.Cookie{Name: AccessCookie, Value: valid})
		require.NoError(t, err)
		assert.Equal(t, uint(7), id)
	})

	t.Run("missing cookie", func(t *testing.T) {
		_, _, err := run(t, nil)
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("expired token clears cookie", func(t *testing.T) {
		rec, _, err := run(t, &http.Cookie{Name: AccessCookie, Value: expired})
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), AccessCookie+"=;")
	})
}

func TestUserID_RejectsNonNumericSubject(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := UserID(c)
	assert.ErrorIs(t, err, ErrUnauthorized)

	c.Set(ctxUserID, "not-a-number")
	_, err = UserID(c)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
