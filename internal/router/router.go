package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/handler"
	"github.com/iliyamo/bookmyseat/internal/middleware"
	"github.com/iliyamo/bookmyseat/internal/model"
)

// RegisterRoutes registers routes that do not require authentication and
// carry no state.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token endpoints under /v1/auth, the browser
// login form at /login/ and the protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token, /refresh-access does not.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/login/", a.LoginHint)
	e.POST("/login/", a.Login)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterBrowse registers the public catalogue.  cache may be nil.
func RegisterBrowse(e *echo.Echo, b *handler.BrowseHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/", b.ListMovies, mw...)
	e.GET("/:movie_id/theaters/", b.MovieTheaters, mw...)
}

// Deps groups what the signed-in routes need.
type Deps struct {
	JWTSecret string
	LoginURL  string
	Bookings  *handler.BookingHandler
	Checkout  *handler.CheckoutHandler
	Dashboard *handler.DashboardHandler
	RateLimit echo.MiddlewareFunc // nil disables rate limiting
}

// RegisterCustomer registers the seat, checkout and dashboard routes.
// Browsers without a session are redirected to the login page; seat and
// checkout routes are rate limited per user.
func RegisterCustomer(e *echo.Echo, d Deps) {
	login := middleware.LoginRequired(d.JWTSecret, d.LoginURL)
	mw := []echo.MiddlewareFunc{login}
	if d.RateLimit != nil {
		mw = append(mw, d.RateLimit)
	}

	const seats = "/theater/:theater_id/seats/book/"
	e.GET(seats, d.Bookings.SeatMap, mw...)
	e.POST(seats, d.Bookings.Reserve, mw...)
	e.DELETE(seats, d.Bookings.Release, mw...)

	e.GET("/checkout/:theater_id/", d.Checkout.Start, mw...)
	e.GET("/payment-success/", d.Checkout.Success, mw...)
	e.GET("/payment-cancel/", d.Checkout.Cancel, login)

	e.GET("/admin-dashboard/", d.Dashboard.Dashboard, login, middleware.RedirectUnlessRole("/", "ADMIN"))

	e.GET("/v1/my-bookings", d.Bookings.MyBookings,
		middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
}
