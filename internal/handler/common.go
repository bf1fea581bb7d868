package handler // HTTP handlers; each file groups the endpoints of one area

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/breaker"
	"github.com/iliyamo/bookmyseat/internal/middleware"
	"github.com/iliyamo/bookmyseat/internal/payment"
	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/service"
)

var errNoUser = errors.New("user id missing from context")

// getUserID returns the id injected by the auth middleware.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errNoUser
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// fail maps repository and service errors onto JSON responses.
func fail(c echo.Context, err error) error {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable", "unavailable": conflict.SeatNumbers})
	case errors.Is(err, service.ErrNoSeatsSelected):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrMovieNotFound),
		errors.Is(err, repository.ErrTheaterNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, payment.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case breaker.IsBreakerError(err):
		code, msg := breaker.HTTPStatus(err)
		return c.JSON(code, echo.Map{"error": msg})
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
