package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/boxoffice/internal/config"
	"github.com/Additional-Code/boxoffice/internal/presentation/http/response"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func invoke(t *testing.T, authorization string) (*httptest.ResponseRecorder, int64) {
	t.Helper()

	identity := NewIdentity(config.Config{Auth: config.Auth{JWTSecret: testSecret}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenUserID int64
	handler := identity.Middleware()(func(c echo.Context) error {
		seenUserID = UserID(c)
		return response.New(c).Build()
	})
	require.NoError(t, handler(c))
	return rec, seenUserID
}

func decodeCode(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Code
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	token := signToken(t, testSecret, Claims{
		UserID:   11,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, userID := invoke(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, statuscode.Success, decodeCode(t, rec))
	assert.Equal(t, int64(11), userID)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	rec, _ := invoke(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, statuscode.Unauthorized, decodeCode(t, rec))
}

func TestMiddlewareRejectsBareHeader(t *testing.T) {
	rec, _ := invoke(t, "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	token := signToken(t, "another-secret", Claims{
		UserID: 11,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, _ := invoke(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, statuscode.Unauthorized, decodeCode(t, rec))
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, Claims{
		UserID: 11,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	rec, _ := invoke(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsZeroUserID(t *testing.T) {
	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, _ := invoke(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
