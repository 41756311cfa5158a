package handlers

import (
	"net/http"
	"time"

	"lotwise/internal/common"
	"lotwise/internal/models"
	"lotwise/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// manifestURLTTL bounds how long a shared manifest link stays live.
const manifestURLTTL = 15 * time.Minute

// ReceivingHandlers exposes stock intake and the archived intake manifests.
type ReceivingHandlers struct {
	receiving services.ReceivingService
	manifest  services.ManifestArchive
}

func NewReceivingHandlers(receiving services.ReceivingService, manifest services.ManifestArchive) *ReceivingHandlers {
	return &ReceivingHandlers{receiving: receiving, manifest: manifest}
}

// ReceiveStock books a single incoming delivery, merging it into a
// compatible lot or opening a new one.
func (h *ReceivingHandlers) ReceiveStock(c echo.Context) error {
	ctx := c.Request().Context()

	var receipt models.StockReceipt
	if err := c.Bind(&receipt); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if receipt.ProductID == uuid.Nil {
		return common.SendValidationError(c, "product_id", "product_id is required")
	}
	if err := common.ValidatePositiveInteger(receipt.Quantity, "quantity", 1_000_000); err != nil {
		return common.SendValidationError(c, "quantity", err.Error())
	}
	if err := common.ValidateRequiredString(receipt.SupplierName, "supplier_name"); err != nil {
		return common.SendValidationError(c, "supplier_name", err.Error())
	}
	if receipt.ManufacturingDate.IsZero() {
		return common.SendValidationError(c, "manufacturing_date", "manufacturing_date is required")
	}

	result, err := h.receiving.ReceiveStock(ctx, &receipt)
	if err != nil {
		return common.SendServerError(c, "Failed to receive stock")
	}
	return c.JSON(http.StatusCreated, result)
}

// ReceiveBulk books a multi-line intake as one new lot.
func (h *ReceivingHandlers) ReceiveBulk(c echo.Context) error {
	ctx := c.Request().Context()

	var receipt models.BulkReceipt
	if err := c.Bind(&receipt); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(receipt.SupplierName, "supplier_name"); err != nil {
		return common.SendValidationError(c, "supplier_name", err.Error())
	}
	if receipt.ManufacturingDate.IsZero() {
		return common.SendValidationError(c, "manufacturing_date", "manufacturing_date is required")
	}
	if len(receipt.Lines) == 0 {
		return common.SendValidationError(c, "lines", "at least one line is required")
	}
	for _, line := range receipt.Lines {
		if line.ProductID == uuid.Nil {
			return common.SendValidationError(c, "product_id", "product_id is required on every line")
		}
		if line.Quantity < 0 {
			return common.SendValidationError(c, "quantity", "quantity must not be negative")
		}
	}

	result, err := h.receiving.ReceiveBulk(ctx, &receipt)
	if err != nil {
		return common.SendServerError(c, "Failed to receive bulk intake")
	}
	return c.JSON(http.StatusCreated, result)
}

// GetBulkManifestURL returns a short-lived presigned link to the archived
// manifest of a bulk intake, for auditing a disputed delivery.
func (h *ReceivingHandlers) GetBulkManifestURL(c echo.Context) error {
	groupID := c.Param("groupID")
	if err := common.ValidateRequiredString(groupID, "groupID"); err != nil {
		return common.SendValidationError(c, "groupID", err.Error())
	}

	url, err := h.manifest.PresignedManifestURL(groupID, manifestURLTTL)
	if err != nil {
		return common.SendServerError(c, "Failed to generate manifest URL")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"group_id":           groupID,
		"url":                url,
		"expires_in_seconds": int(manifestURLTTL.Seconds()),
	})
}
