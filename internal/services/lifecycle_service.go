package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotwise/internal/caching"
	"lotwise/internal/common"
	"lotwise/internal/models"
	"lotwise/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleService drives reservations through their terminal transitions.
// Delivery commits allocated quantities to used; cancellation releases them
// back to available. Both are idempotent: a reservation already in a terminal
// state is reported in AlreadyProcessed and left untouched.
type LifecycleService interface {
	OnDelivered(ctx context.Context, orderID uuid.UUID) (*models.LifecycleResult, error)
	OnCancelled(ctx context.Context, orderID uuid.UUID) (*models.LifecycleResult, error)
}

type lifecycleService struct {
	db              repositories.Database
	lotRepo         repositories.LotRepository
	reservationRepo repositories.ReservationRepository
	ledger          LedgerService
	cache           caching.CacheService
	logger          *zap.Logger
	now             func() time.Time
}

func NewLifecycleService(db repositories.Database, lotRepo repositories.LotRepository,
	reservationRepo repositories.ReservationRepository, ledger LedgerService,
	cache caching.CacheService, logger *zap.Logger) LifecycleService {
	return &lifecycleService{
		db:              db,
		lotRepo:         lotRepo,
		reservationRepo: reservationRepo,
		ledger:          ledger,
		cache:           cache,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *lifecycleService) OnDelivered(ctx context.Context, orderID uuid.UUID) (*models.LifecycleResult, error) {
	return s.transition(ctx, orderID, "delivered")
}

func (s *lifecycleService) OnCancelled(ctx context.Context, orderID uuid.UUID) (*models.LifecycleResult, error) {
	return s.transition(ctx, orderID, "cancelled")
}

// transition walks every reservation of the order and applies the terminal
// state in one transaction per reservation: all its quantity moves, the
// status stamp and the lot status recompute commit together. A ledger
// inconsistency on one reservation is clamped and reported without aborting
// the others.
func (s *lifecycleService) transition(ctx context.Context, orderID uuid.UUID, target models.ReservationStatus) (*models.LifecycleResult, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order ID is required")
	}

	reservations, err := s.reservationRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list reservations for order %s: %w", orderID, err)
	}
	if len(reservations) == 0 {
		return nil, fmt.Errorf("order %s has no reservations: %w", orderID, common.ErrNotFound)
	}

	result := &models.LifecycleResult{
		OrderID:     orderID,
		Success:     true,
		UpdatedLots: []uuid.UUID{},
	}

	for _, res := range reservations {
		if res.Status.Terminal() {
			result.AlreadyProcessed = append(result.AlreadyProcessed, res.ID)
			s.logger.Info("reservation already in terminal state, skipping",
				zap.String("reservation_id", res.ID.String()),
				zap.String("order_id", orderID.String()),
				zap.String("status", string(res.Status)))
			continue
		}

		if err := s.applyOne(ctx, res, target, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *lifecycleService) applyOne(ctx context.Context, res *models.Reservation, target models.ReservationStatus, result *models.LifecycleResult) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s transition: %w", target, err)
	}
	defer tx.Rollback(ctx)

	at := s.now()
	for _, item := range res.Items {
		var applyErr error
		switch target {
		case models.ReservationDelivered:
			_, applyErr = s.ledger.CommitUsed(ctx, tx, res.LotID, item.ProductID, item.VariantID, item.Quantity)
		case models.ReservationCancelled:
			_, applyErr = s.ledger.Release(ctx, tx, res.LotID, item.ProductID, item.VariantID, item.Quantity)
		default:
			applyErr = fmt.Errorf("target status %q: %w", target, common.ErrInvalidTransition)
		}
		if applyErr != nil {
			if errors.Is(applyErr, common.ErrInconsistentLedger) {
				// Clamped inside the ledger; record and keep going so the
				// reservation still reaches its terminal state.
				result.Success = false
				result.Errors = append(result.Errors, applyErr.Error())
				continue
			}
			return applyErr
		}
	}

	switch target {
	case models.ReservationDelivered:
		err = s.reservationRepo.MarkDelivered(ctx, tx, res.ID, at)
	case models.ReservationCancelled:
		err = s.reservationRepo.MarkCancelled(ctx, tx, res.ID, at)
	}
	if err != nil {
		return fmt.Errorf("mark reservation %s %s: %w", res.ID, target, err)
	}

	if err := s.lotRepo.RecomputeStatus(ctx, tx, res.LotID, at); err != nil {
		return fmt.Errorf("recompute lot status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	result.UpdatedLots = append(result.UpdatedLots, res.LotID)
	s.evictStock(ctx, res)
	return nil
}

// evictStock drops the cached availability of every product the reservation
// touched, so storefront reads see the transition without waiting out the
// TTL. Cache failures are logged and swallowed; reads fall through to the
// aggregator.
func (s *lifecycleService) evictStock(ctx context.Context, res *models.Reservation) {
	if s.cache == nil {
		return
	}
	for _, item := range res.Items {
		if err := s.cache.DeleteStock(ctx, item.ProductID, item.VariantID); err != nil {
			s.logger.Warn("stock cache eviction failed",
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err))
		}
	}
}
