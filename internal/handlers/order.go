package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/fusionmarkt/shop/internal/history"
	"github.com/fusionmarkt/shop/internal/models"
	"github.com/fusionmarkt/shop/internal/util"
)

type OrderHandler struct {
	DB *gorm.DB
}

func (h *OrderHandler) ListMyOrders(c echo.Context) error {
	userID, ok := c.Get("userID").(uint)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var orders []models.Order
	if err := h.DB.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetMyOrder(c echo.Context) error {
	userID, ok := c.Get("userID").(uint)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	var order models.Order
	if err := h.DB.Preload("Items").
		Where("order_number = ? AND user_id = ?", c.Param("number"), userID).
		First(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	return c.JSON(http.StatusOK, order)
}

// GetContracts serves the contract documents for the access token mailed to
// the buyer. No login needed; the token is the credential.
func (h *OrderHandler) GetContracts(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token required")
	}

	var order models.Order
	if err := h.DB.Where("access_token = ?", token).First(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	log, err := history.Parse(order.StatusHistory)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	for _, entry := range log {
		if entry.Contract != nil {
			return c.HTML(http.StatusOK,
				entry.Contract.TermsHTML+entry.Contract.DistanceSalesHTML)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "no contract documents on this order")
}
