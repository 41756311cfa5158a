package handlers

import (
	"net/http"

	"lotwise/internal/common"
	"lotwise/internal/models"
	"lotwise/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AllocationHandlers exposes the FEFO allocator over HTTP.
type AllocationHandlers struct {
	allocator services.AllocatorService
}

func NewAllocationHandlers(allocator services.AllocatorService) *AllocationHandlers {
	return &AllocationHandlers{allocator: allocator}
}

// AllocateRequest is the payload for allocating stock to an order.
type AllocateRequest struct {
	OrderID uuid.UUID           `json:"order_id"`
	Items   []models.DemandItem `json:"items"`
}

// Allocate reserves stock for an order across lots in FEFO order. Returns
// 200 with the reservation breakdown; a shortfall is not an error, the
// response carries fully_allocated=false and the per-item shortfalls.
func (h *AllocationHandlers) Allocate(c echo.Context) error {
	ctx := c.Request().Context()

	var req AllocateRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.OrderID == uuid.Nil {
		return common.SendValidationError(c, "order_id", "order_id is required")
	}
	if len(req.Items) == 0 {
		return common.SendValidationError(c, "items", "at least one item is required")
	}
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return common.SendValidationError(c, "product_id", "product_id is required on every item")
		}
		if err := common.ValidatePositiveInteger(item.Quantity, "quantity", 1_000_000); err != nil {
			return common.SendValidationError(c, "quantity", err.Error())
		}
	}

	result, err := h.allocator.Allocate(ctx, req.OrderID, req.Items)
	if err != nil {
		return common.SendServerError(c, "Failed to allocate stock")
	}
	return c.JSON(http.StatusOK, result)
}
