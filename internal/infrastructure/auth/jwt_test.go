package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTUtil_GenerateAndValidate(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)
	tokenStr, err := ju.GenerateTokenStr("u1", "Alice")
	require.NoError(t, err)

	claims, err := ju.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UID)
	assert.Equal(t, "Alice", claims.Name)
	assert.True(t, claims.TimeRemaining() > 59*time.Minute)
}

func TestJWTUtil_ValidateRejects(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)
	other := NewJWTUtil("HS256", "other", "token", time.Hour)
	tokenStr, err := other.GenerateTokenStr("u1", "Alice")
	require.NoError(t, err)

	_, err = ju.Validate(tokenStr)
	assert.Error(t, err, "wrong secret")

	expired := NewJWTUtil("HS256", "secret", "token", -time.Minute)
	tokenStr, err = expired.GenerateTokenStr("u1", "Alice")
	require.NoError(t, err)
	_, err = ju.Validate(tokenStr)
	assert.Error(t, err, "expired")

	hs512 := NewJWTUtil("HS512", "secret", "token", time.Hour)
	tokenStr, err = hs512.GenerateTokenStr("u1", "Alice")
	require.NoError(t, err)
	_, err = ju.Validate(tokenStr)
	assert.Error(t, err, "method mismatch")
}

func TestJWTUtil_ExtractToken(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	req.Header.Set(echo.HeaderAuthorization, "Bearer from-header")
	tokenStr, err := ju.ExtractToken(e.NewContext(req, httptest.NewRecorder()))
	assert.NoError(t, err)
	assert.Equal(t, "from-cookie", tokenStr)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer from-header")
	tokenStr, err = ju.ExtractToken(e.NewContext(req, httptest.NewRecorder()))
	assert.NoError(t, err)
	assert.Equal(t, "from-header", tokenStr)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = ju.ExtractToken(e.NewContext(req, httptest.NewRecorder()))
	assert.ErrorIs(t, err, ErrNoToken)
}
