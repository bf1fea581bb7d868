package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/service"
)

// BookingHandler serves the seat map of a theater and the customer's own
// bookings.  Every route requires an authenticated user.
type BookingHandler struct {
	Reservations *service.ReservationService
	Bookings     *repository.BookingRepo
}

func NewBookingHandler(res *service.ReservationService, bookings *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Reservations: res, Bookings: bookings}
}

// SeatMap handles GET /theater/:theater_id/seats/book/.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	theaterID, ok := parseID(c, "theater_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	m, err := h.Reservations.SeatMap(c.Request().Context(), userID, theaterID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Reserve handles POST /theater/:theater_id/seats/book/.  Seat ids come
// from repeated "seats" form values or from a JSON body {"seat_ids": []}.
// On success the client is sent on to checkout.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	theaterID, ok := parseID(c, "theater_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	ids, err := seatIDsFrom(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := h.Reservations.Reserve(c.Request().Context(), userID, theaterID, ids); err != nil {
		return fail(c, err)
	}
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/checkout/%d/", theaterID))
}

// Release handles DELETE /theater/:theater_id/seats/book/ and drops the
// caller's holds on the theater.
func (h *BookingHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	theaterID, ok := parseID(c, "theater_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	n, err := h.Reservations.Release(c.Request().Context(), userID, theaterID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

func seatIDsFrom(c echo.Context) ([]uint64, error) {
	var raw []string
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var body struct {
			SeatIDs []uint64 `json:"seat_ids"`
		}
		if err := c.Bind(&body); err != nil {
			return nil, fmt.Errorf("invalid request body")
		}
		return body.SeatIDs, nil
	}
	form, err := c.FormParams()
	if err != nil {
		return nil, fmt.Errorf("invalid form")
	}
	raw = form["seats"]
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seat id %q", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
