package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/aurora-advisory/advisory-api/internal/api/middleware"
	"github.com/aurora-advisory/advisory-api/internal/core/domain"
)

// callerFrom returns the caller injected by the Auth middleware. A missing
// caller means the route was registered without Auth, which is reported as
// unauthenticated rather than trusted.
func callerFrom(c echo.Context) (domain.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return domain.Caller{}, domain.ErrMissingToken
	}
	return caller, nil
}

// bindAndValidate decodes the payload into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.Validationf("invalid payload")
	}
	return c.Validate(req)
}
