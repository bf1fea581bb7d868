package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/repository"
)

// DashboardHandler reports sales to admins.
type DashboardHandler struct {
	Bookings *repository.BookingRepo
}

func NewDashboardHandler(b *repository.BookingRepo) *DashboardHandler {
	return &DashboardHandler{Bookings: b}
}

// Dashboard handles GET /admin-dashboard/: total revenue and the five most
// booked movies and theaters.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	st, err := h.Bookings.Stats(c.Request().Context(), 5)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_revenue":       float64(st.TotalRevenueCents) / 100,
		"total_revenue_cents": st.TotalRevenueCents,
		"popular_movies":      st.PopularMovies,
		"busiest_theaters":    st.BusiestTheaters,
	})
}
