package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth.
// A caller whose role is not listed gets a forbidden error (403), never an
// auth error, so clients keep their session.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok {
				return reject(domain.ErrMissingToken)
			}
			if _, ok := allowed[caller.Role]; !ok {
				return reject(domain.Forbiddenf("role %s may not access this resource", caller.Role))
			}
			return next(c)
		}
	}
}
