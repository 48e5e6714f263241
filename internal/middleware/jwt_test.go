package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, sub, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func runProtected(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		uid, _ := c.Get("user_id").(string)
		return c.String(http.StatusOK, uid)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestJWTAuth(t *testing.T) {
	t.Run("valid token passes and sets context", func(t *testing.T) {
		tok := signToken(t, testSecret, "user-1", "OWNER")
		rec := runProtected(t, "Bearer "+tok, JWTAuth(testSecret))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		rec := runProtected(t, "", JWTAuth(testSecret))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok := signToken(t, "other-secret", "user-1", "OWNER")
		rec := runProtected(t, "Bearer "+tok, JWTAuth(testSecret))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := runProtected(t, "Bearer not.a.token", JWTAuth(testSecret))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("allowed role", func(t *testing.T) {
		tok := signToken(t, testSecret, "user-1", "OWNER")
		rec := runProtected(t, "Bearer "+tok, JWTAuth(testSecret), RequireRole("OWNER"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		tok := signToken(t, testSecret, "user-1", "CUSTOMER")
		rec := runProtected(t, "Bearer "+tok, JWTAuth(testSecret), RequireRole("OWNER"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no role claim", func(t *testing.T) {
		tok := signToken(t, testSecret, "user-1", "")
		rec := runProtected(t, "Bearer "+tok, JWTAuth(testSecret), RequireRole("OWNER"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
