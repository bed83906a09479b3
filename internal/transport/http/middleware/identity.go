package middleware

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/boxoffice/internal/config"
	"github.com/Additional-Code/boxoffice/internal/presentation/http/response"
	"github.com/Additional-Code/boxoffice/pkg/errorbank"
)

const userIDKey = "identity.user_id"

// Claims is the token payload carried by authenticated requests.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity resolves the calling user from a bearer token. It identifies
// requests only; issuing and refreshing tokens is out of scope here.
type Identity struct {
	secret []byte
}

// NewIdentity constructs the identity middleware from configuration.
func NewIdentity(cfg config.Config) *Identity {
	return &Identity{secret: []byte(cfg.Auth.JWTSecret)}
}

// Middleware rejects requests without a valid bearer token and stashes the
// user id in the request context.
func (i *Identity) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return response.New(c).WithError(errorbank.Unauthenticated("请先登录")).Build()
			}

			claims, err := i.parse(token)
			if err != nil {
				return response.New(c).WithError(errorbank.Unauthenticated("登录已过期", errorbank.WithCause(err))).Build()
			}

			c.Set(userIDKey, claims.UserID)
			return next(c)
		}
	}
}

func (i *Identity) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.UserID <= 0 {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// UserID returns the authenticated user id set by the middleware.
func UserID(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}

// Module provides the identity middleware to Fx.
var Module = fx.Provide(NewIdentity)
