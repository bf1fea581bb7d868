package middleware // reusable HTTP middleware for the Echo router

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/utils"
)

// AccessCookie is the cookie set on login so that browser redirects (for
// example the return from the checkout page) stay authenticated.
const AccessCookie = "access_token"

// Context keys set by the auth middleware.  user_id is a uint64, role a
// string.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth validates the access token and injects the user id and role into
// the context.  It is meant for API routes and answers 401 JSON when the
// token is missing or invalid.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// LoginRequired is JWTAuth for browser routes: instead of 401 it redirects
// to loginURL with the current path in ?next=.
func LoginRequired(secret, loginURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := tokenFrom(c); raw != "" {
				if id, err := utils.ParseAccessToken(secret, raw); err == nil {
					setIdentity(c, id)
					return next(c)
				}
			}
			return c.Redirect(http.StatusFound, loginURL+"?next="+url.QueryEscape(c.Request().URL.RequestURI()))
		}
	}
}

// tokenFrom reads the Authorization header first and falls back to the
// access cookie.
func tokenFrom(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}

func setIdentity(c echo.Context, id utils.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxRole, id.Role)
}
