package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole aborts with 403 unless the authenticated user has one of the
// given roles.  It expects JWTAuth or LoginRequired to run first.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := roleSet(roles)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if !allowed[role] {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RedirectUnlessRole sends users without one of the roles to target
// instead of failing.  The admin dashboard uses it.
func RedirectUnlessRole(target string, roles ...string) echo.MiddlewareFunc {
	allowed := roleSet(roles)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if !allowed[role] {
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}

func roleSet(roles []string) map[string]bool {
	m := make(map[string]bool, len(roles))
	for _, r := range roles {
		m[r] = true
	}
	return m
}
