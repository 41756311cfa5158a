package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotwise/internal/common"
	"lotwise/internal/models"
	"lotwise/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocatorService reserves stock for orders using First-Expired-First-Out
// selection. Each demand item is satisfied independently: eligible lot lines
// are walked in FEFO order and drained until the demand is met or supply runs
// out. Partial reservations are kept on shortfall; the order service owns the
// accept-or-cancel decision.
type AllocatorService interface {
	Allocate(ctx context.Context, orderID uuid.UUID, demands []models.DemandItem) (*models.AllocationResult, error)
}

type allocatorService struct {
	db              repositories.Database
	lotRepo         repositories.LotRepository
	reservationRepo repositories.ReservationRepository
	ledger          LedgerService
	logger          *zap.Logger
	now             func() time.Time
}

func NewAllocatorService(db repositories.Database, lotRepo repositories.LotRepository,
	reservationRepo repositories.ReservationRepository, ledger LedgerService, logger *zap.Logger) AllocatorService {
	return &allocatorService{
		db:              db,
		lotRepo:         lotRepo,
		reservationRepo: reservationRepo,
		ledger:          ledger,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *allocatorService) Allocate(ctx context.Context, orderID uuid.UUID, demands []models.DemandItem) (*models.AllocationResult, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order ID is required")
	}
	if len(demands) == 0 {
		return nil, fmt.Errorf("at least one demand item is required")
	}
	for i, d := range demands {
		if d.ProductID == uuid.Nil {
			return nil, fmt.Errorf("demand item %d: product ID is required", i)
		}
		if d.Quantity <= 0 {
			return nil, fmt.Errorf("demand item %d: quantity must be positive, got %d", i, d.Quantity)
		}
	}

	result := &models.AllocationResult{
		OrderID:        orderID,
		FullyAllocated: true,
		Allocations:    []models.Allocation{},
	}

	for _, demand := range demands {
		reserved, allocations, err := s.allocateItem(ctx, orderID, demand)
		if err != nil {
			return nil, err
		}
		result.Allocations = append(result.Allocations, allocations...)
		if reserved < demand.Quantity {
			result.FullyAllocated = false
			result.Shortfalls = append(result.Shortfalls, models.Shortfall{
				ProductID: demand.ProductID,
				VariantID: demand.VariantID,
				Requested: demand.Quantity,
				Reserved:  reserved,
				Shortfall: demand.Quantity - reserved,
			})
			s.logger.Warn("allocation shortfall",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", demand.ProductID.String()),
				zap.Int("requested", demand.Quantity),
				zap.Int("reserved", reserved))
		}
	}

	return result, nil
}

// allocateItem walks the FEFO-ordered eligible lines for one demand item.
// Each lot touched gets its reservation appended in the same transaction as
// the quantity move, so a caller timeout leaves no lot line half-mutated.
func (s *allocatorService) allocateItem(ctx context.Context, orderID uuid.UUID, demand models.DemandItem) (int, []models.Allocation, error) {
	lines, err := s.lotRepo.FindEligibleLines(ctx, demand.ProductID, demand.VariantID, s.now())
	if err != nil {
		return 0, nil, fmt.Errorf("find eligible lots: %w", err)
	}

	remaining := demand.Quantity
	var allocations []models.Allocation

	for _, line := range lines {
		if remaining == 0 {
			break
		}
		want := remaining
		if line.Available < want {
			want = line.Available
		}

		taken, reservationID, err := s.reserveFromLot(ctx, orderID, demand, line, want)
		if err != nil {
			return demand.Quantity - remaining, allocations, err
		}
		if taken == 0 {
			continue
		}

		allocations = append(allocations, models.Allocation{
			LotID:         line.LotID,
			LotNumber:     line.LotNumber,
			ReservationID: reservationID,
			ProductID:     demand.ProductID,
			VariantID:     demand.VariantID,
			Quantity:      taken,
		})
		remaining -= taken
	}

	return demand.Quantity - remaining, allocations, nil
}

func (s *allocatorService) reserveFromLot(ctx context.Context, orderID uuid.UUID, demand models.DemandItem,
	line *repositories.EligibleLine, want int) (int, uuid.UUID, error) {

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("begin allocation: %w", err)
	}
	defer tx.Rollback(ctx)

	taken, err := s.ledger.Reserve(ctx, tx, line.LineID, want)
	if errors.Is(err, common.ErrInsufficientStock) {
		// Drained by a concurrent order between snapshot and reserve.
		return 0, uuid.Nil, nil
	}
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("reserve from lot %s: %w", line.LotNumber, err)
	}

	reservation, err := s.reservationRepo.GetOrCreateForOrder(ctx, tx, line.LotID, orderID, s.now())
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("reservation for lot %s: %w", line.LotNumber, err)
	}

	kind := demand.Kind
	if kind == "" {
		kind = models.LineItemRegular
	}
	item := &models.ReservationItem{
		ID:            uuid.New(),
		ReservationID: reservation.ID,
		ProductID:     demand.ProductID,
		VariantID:     demand.VariantID,
		Quantity:      taken,
		Kind:          kind,
		ParentComboID: demand.ParentComboID,
	}
	if err := s.reservationRepo.AddItem(ctx, tx, item); err != nil {
		return 0, uuid.Nil, fmt.Errorf("append reservation item: %w", err)
	}

	if err := s.lotRepo.RecomputeStatus(ctx, tx, line.LotID, s.now()); err != nil {
		return 0, uuid.Nil, fmt.Errorf("recompute lot status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, uuid.Nil, err
	}
	return taken, reservation.ID, nil
}
