package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/pkg/metrics"
)

const principalKey = "principal"

// Authenticate resolves the caller from the Authorization header.
//
// No header means an anonymous request and the chain continues without a
// principal. A header that is not "Bearer <token>", or a token that fails
// verification, ends the request with domain.ErrInvalidToken.
func Authenticate(verifier ports.TokenVerifier, issuer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				metrics.AuthDecisionsTotal.WithLabelValues("authenticate", "anonymous").Inc()
				return next(c)
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.AuthDecisionsTotal.WithLabelValues("authenticate", "rejected").Inc()
				return fmt.Errorf("%w: malformed authorization header", domain.ErrInvalidToken)
			}

			principal, err := verifier.Verify(strings.TrimSpace(parts[1]), issuer)
			if err != nil {
				metrics.AuthDecisionsTotal.WithLabelValues("authenticate", "rejected").Inc()
				return err
			}

			metrics.AuthDecisionsTotal.WithLabelValues("authenticate", "authenticated").Inc()
			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// PrincipalFromContext returns the authenticated caller, or nil for anonymous
// requests.
func PrincipalFromContext(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}
