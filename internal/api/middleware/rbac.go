package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-service/internal/core/domain"
	"github.com/99minutos/user-service/internal/pkg/metrics"
)

// RequireAdministrator admits only callers holding the Administrator role.
func RequireAdministrator() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !PrincipalFromContext(c).IsAdministrator() {
				return deny()
			}
			return allow(next, c)
		}
	}
}

// RequireSelfOrAdministrator admits administrators and the user whose id is in
// the named path parameter. A non-integer id is reported as not found.
func RequireSelfOrAdministrator(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := PathID(c, param)
			if err != nil {
				return err
			}
			p := PrincipalFromContext(c)
			if p == nil || (!p.IsAdministrator() && p.ID != id) {
				return deny()
			}
			return allow(next, c)
		}
	}
}

// CanCreateUser reports whether caller may sign up draft. Anyone may create a
// plain account; requesting Administrator needs an administrator caller.
func CanCreateUser(caller *domain.Principal, draft domain.UserDraft) bool {
	if !draft.RequestsRole(domain.RoleAdministrator) {
		return true
	}
	return caller.IsAdministrator()
}

// PathID parses the named path parameter as a user id.
func PathID(c echo.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		return 0, echo.ErrNotFound
	}
	return id, nil
}

func allow(next echo.HandlerFunc, c echo.Context) error {
	metrics.AuthDecisionsTotal.WithLabelValues("authorize", "allowed").Inc()
	return next(c)
}

func deny() error {
	metrics.AuthDecisionsTotal.WithLabelValues("authorize", "denied").Inc()
	return domain.ErrForbidden
}
