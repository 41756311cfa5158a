package handlers

import (
	"errors"
	"net/http"

	"lotwise/internal/common"
	"lotwise/internal/services"

	"github.com/labstack/echo/v4"
)

// OrderHandlers exposes the reservation lifecycle transitions. Both
// endpoints are idempotent: repeating a transition reports the already
// processed reservations instead of re-applying quantity moves.
type OrderHandlers struct {
	lifecycle services.LifecycleService
}

func NewOrderHandlers(lifecycle services.LifecycleService) *OrderHandlers {
	return &OrderHandlers{lifecycle: lifecycle}
}

// MarkDelivered commits the order's reservations: allocated quantity becomes
// used.
func (h *OrderHandlers) MarkDelivered(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "order ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	result, err := h.lifecycle.OnDelivered(ctx, orderID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.SendNotFoundError(c, "Order reservations")
		}
		return common.SendServerError(c, "Failed to mark order delivered")
	}
	return c.JSON(http.StatusOK, result)
}

// MarkCancelled releases the order's reservations back to available stock.
func (h *OrderHandlers) MarkCancelled(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "order ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	result, err := h.lifecycle.OnCancelled(ctx, orderID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.SendNotFoundError(c, "Order reservations")
		}
		return common.SendServerError(c, "Failed to cancel order reservations")
	}
	return c.JSON(http.StatusOK, result)
}
