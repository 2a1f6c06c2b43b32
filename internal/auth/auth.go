// Package auth verifies bearer tokens against the identity service's
// published JWKS and exposes the verified claims to handlers.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/lingwo/essayd/internal/domain"
)

const claimsContextKey = "essayd.claims"

// Verifier validates RS256 tokens against a JWKS endpoint. The key set is
// fetched once on first use and reused; a failed fetch is retried on the
// next request rather than cached.
type Verifier struct {
	jwksURL string

	mu  sync.Mutex
	set jwk.Set
}

// NewVerifier creates a verifier for the given JWKS URL.
func NewVerifier(jwksURL string) *Verifier {
	return &Verifier{jwksURL: jwksURL}
}

func (v *Verifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.set != nil {
		return v.set, nil
	}
	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch jwks: %v", domain.ErrUpstream, err)
	}
	v.set = set
	return set, nil
}

// Verify parses and validates a token and extracts the claims the service
// consumes. Expired or unsigned tokens fail validation.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.Claims, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := jwt.Parse([]byte(token), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var userID string
	if err := tok.Get("user_id", &userID); err != nil || userID == "" {
		return nil, fmt.Errorf("invalid token: missing user_id claim")
	}

	claims := &domain.Claims{UserID: userID}
	var role float64
	if err := tok.Get("role", &role); err == nil {
		claims.Role = int(role)
	}
	var email string
	if err := tok.Get("email", &email); err == nil {
		claims.Email = email
	}
	var username string
	if err := tok.Get("username", &username); err == nil {
		claims.Username = username
	}
	return claims, nil
}

// Middleware authenticates requests with a Bearer token and stores the
// verified claims in the request context.
func (v *Verifier) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			claims, err := v.Verify(c.Request().Context(), token)
			if err != nil {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the verified claims stored by the middleware.
func ClaimsFrom(c echo.Context) (*domain.Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*domain.Claims)
	return claims, ok
}

// SetClaims injects claims directly. Used by tests to bypass verification.
func SetClaims(c echo.Context, claims *domain.Claims) {
	c.Set(claimsContextKey, claims)
}
