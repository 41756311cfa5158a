package handlers

import (
	"net/http"
	"strconv"

	"lotwise/internal/common"
	"lotwise/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// StockHandlers answers availability questions for the storefront.
type StockHandlers struct {
	stock services.StockService
}

func NewStockHandlers(stock services.StockService) *StockHandlers {
	return &StockHandlers{stock: stock}
}

// variantIDFromQuery parses the optional variant_id query parameter.
func variantIDFromQuery(c echo.Context) (*uuid.UUID, error) {
	raw := c.QueryParam("variant_id")
	if raw == "" {
		return nil, nil
	}
	id, err := common.ValidateUUID(raw, "variant_id")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// GetStock returns the aggregated stock summary for a product or variant.
func (h *StockHandlers) GetStock(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := common.ValidateUUID(c.Param("productID"), "product ID")
	if err != nil {
		return common.SendValidationError(c, "productID", err.Error())
	}
	variantID, err := variantIDFromQuery(c)
	if err != nil {
		return common.SendValidationError(c, "variant_id", err.Error())
	}

	summary, err := h.stock.Summary(ctx, productID, variantID)
	if err != nil {
		return common.SendServerError(c, "Failed to summarize stock")
	}
	return c.JSON(http.StatusOK, summary)
}

// CheckStock answers whether a quantity could be allocated right now. The
// answer is advisory; allocation re-checks under guarded updates.
func (h *StockHandlers) CheckStock(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := common.ValidateUUID(c.Param("productID"), "product ID")
	if err != nil {
		return common.SendValidationError(c, "productID", err.Error())
	}
	variantID, err := variantIDFromQuery(c)
	if err != nil {
		return common.SendValidationError(c, "variant_id", err.Error())
	}

	qty, err := strconv.Atoi(c.QueryParam("quantity"))
	if err != nil {
		return common.SendValidationError(c, "quantity", "quantity must be an integer")
	}
	if err := common.ValidatePositiveInteger(qty, "quantity", 1_000_000); err != nil {
		return common.SendValidationError(c, "quantity", err.Error())
	}

	check, err := h.stock.CheckAvailability(ctx, productID, variantID, qty)
	if err != nil {
		return common.SendServerError(c, "Failed to check availability")
	}
	return c.JSON(http.StatusOK, check)
}
