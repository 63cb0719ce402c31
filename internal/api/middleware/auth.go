package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aurora-advisory/advisory-api/internal/api/metrics"
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

const callerKey = "caller"

// Auth resolves the bearer token into a domain.Caller and stores it on the
// context. Every failure is an auth_error, rendered as 401 by the error handler,
// and counted in metrics.AuthRejectionsTotal.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return reject(domain.ErrMissingToken)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return reject(domain.ErrInvalidToken)
			}

			caller, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return reject(err)
			}

			SetCaller(c, caller)
			return next(c)
		}
	}
}

// reject counts an access-layer rejection under the error's kind.
func reject(err error) error {
	kind := domain.KindAuth
	if de, ok := domain.AsError(err); ok {
		kind = de.Kind
	}
	metrics.AuthRejectionsTotal.WithLabelValues(string(kind)).Inc()
	return err
}

// SetCaller stores the authenticated caller on the echo context.
func SetCaller(c echo.Context, caller domain.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller stored by Auth.
func CallerFrom(c echo.Context) (domain.Caller, bool) {
	caller, ok := c.Get(callerKey).(domain.Caller)
	return caller, ok && caller.UserID != ""
}
