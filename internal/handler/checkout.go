package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/service"
)

// CheckoutHandler hands the browser over to the hosted checkout page and
// books the seats when it comes back.
type CheckoutHandler struct {
	Checkout *service.CheckoutService
	BaseURL  string // public origin; derived from the request when empty
}

func NewCheckoutHandler(svc *service.CheckoutService, baseURL string) *CheckoutHandler {
	return &CheckoutHandler{Checkout: svc, BaseURL: baseURL}
}

// Start handles GET /checkout/:theater_id/.
func (h *CheckoutHandler) Start(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	theaterID, ok := parseID(c, "theater_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	sess, err := h.Checkout.Start(c.Request().Context(), userID, theaterID, h.baseURL(c))
	if errors.Is(err, service.ErrNothingToCheckout) {
		return c.Redirect(http.StatusFound, "/")
	}
	if err != nil {
		return fail(c, err)
	}
	return c.Redirect(http.StatusSeeOther, sess.URL)
}

// Success handles GET /payment-success/?session_id=...
func (h *CheckoutHandler) Success(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Checkout.Confirm(c.Request().Context(), userID, c.QueryParam("session_id"))
	if errors.Is(err, service.ErrMissingSession) {
		return c.Redirect(http.StatusFound, "/")
	}
	if err != nil {
		return fail(c, err)
	}
	switch res.Status {
	case service.StatusNothingReserved:
		return c.Redirect(http.StatusFound, "/")
	case service.StatusUnpaid:
		return c.JSON(http.StatusPaymentRequired, res)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles GET /payment-cancel/.  Holds are left to expire.
func (h *CheckoutHandler) Cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "cancelled",
		"message": "Payment was cancelled. Your seats stay on hold until the reservation expires.",
	})
}

func (h *CheckoutHandler) baseURL(c echo.Context) string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	return c.Scheme() + "://" + c.Request().Host
}
