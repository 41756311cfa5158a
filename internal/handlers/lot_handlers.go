package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"lotwise/internal/common"
	"lotwise/internal/repositories"

	"github.com/labstack/echo/v4"
)

// LotHandlers exposes read access to the lot audit trail.
type LotHandlers struct {
	lotRepo         repositories.LotRepository
	reservationRepo repositories.ReservationRepository
}

func NewLotHandlers(lotRepo repositories.LotRepository, reservationRepo repositories.ReservationRepository) *LotHandlers {
	return &LotHandlers{lotRepo: lotRepo, reservationRepo: reservationRepo}
}

// ListLotsRequest represents query parameters for listing lots.
type ListLotsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListLots returns lots newest first.
func (h *LotHandlers) ListLots(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListLotsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	lots, err := h.lotRepo.List(ctx, req.Limit, req.Offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list lots")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"lots":   lots,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

// ListExpiring returns active lots expiring within the requested number of
// days, soonest first. Defaults to 7 days.
func (h *LotHandlers) ListExpiring(c echo.Context) error {
	ctx := c.Request().Context()

	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return common.SendValidationError(c, "days", "days must be an integer")
		}
		if err := common.ValidatePositiveInteger(parsed, "days", 365); err != nil {
			return common.SendValidationError(c, "days", err.Error())
		}
		days = parsed
	}

	lots, err := h.lotRepo.ListExpiring(ctx, time.Now(), time.Duration(days)*24*time.Hour)
	if err != nil {
		return common.SendServerError(c, "Failed to list expiring lots")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"days": days,
		"lots": lots,
	})
}

// GetLot returns one lot with its lines.
func (h *LotHandlers) GetLot(c echo.Context) error {
	ctx := c.Request().Context()

	lotID, err := common.ValidateUUID(c.Param("id"), "lot ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	lot, err := h.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.SendNotFoundError(c, "Lot")
		}
		return common.SendServerError(c, "Failed to load lot")
	}
	return c.JSON(http.StatusOK, lot)
}

// GetLotReservations returns the reservations drawn against one lot.
func (h *LotHandlers) GetLotReservations(c echo.Context) error {
	ctx := c.Request().Context()

	lotID, err := common.ValidateUUID(c.Param("id"), "lot ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	reservations, err := h.reservationRepo.ListByLot(ctx, lotID)
	if err != nil {
		return common.SendServerError(c, "Failed to list reservations")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"lot_id":       lotID,
		"reservations": reservations,
	})
}
