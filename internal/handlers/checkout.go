package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fusionmarkt/shop/internal/checkout"
)

type CheckoutHandler struct {
	Checkout *checkout.Service
}

// Begin accepts the checkout payload, creates the draft and returns the
// gateway's 3-D Secure challenge for the storefront to render. From here the
// customer is at their bank; the flow resumes in the payment callback.
func (h *CheckoutHandler) Begin(c echo.Context) error {
	var payload checkout.DraftPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	var userID *uint
	if v, ok := c.Get("userID").(uint); ok {
		userID = &v
	}

	orderNumber, init, err := h.Checkout.Begin(c.Request().Context(), userID, &payload)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart),
			errors.Is(err, checkout.ErrInvalidEmail),
			errors.Is(err, checkout.ErrConsentRequired):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		c.Logger().Errorf("checkout begin failed: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "ödeme başlatılamadı")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order_number": orderNumber,
		"threeds_html": init.HTMLContent,
	})
}
