package services

import (
	"context"
	"fmt"

	"lotwise/internal/common"
	"lotwise/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService owns the three quantity transitions of a lot line: Reserve
// moves available to allocated, CommitUsed moves allocated to used, Release
// moves allocated back to available. Every transition is a single guarded
// SQL statement, so the conservation invariant holds under concurrent
// callers without a global lock. All three run on a caller-supplied
// Executor: the allocator batches Reserve with the reservation append, the
// lifecycle coordinator batches CommitUsed and Release with the reservation
// status flip, one transaction per lot or reservation.
type LedgerService interface {
	Reserve(ctx context.Context, ex repositories.Executor, lineID uuid.UUID, qty int) (int, error)
	CommitUsed(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (int, error)
	Release(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (int, error)
}

type ledgerService struct {
	lotRepo repositories.LotRepository
	logger  *zap.Logger
}

func NewLedgerService(lotRepo repositories.LotRepository, logger *zap.Logger) LedgerService {
	return &ledgerService{
		lotRepo: lotRepo,
		logger:  logger,
	}
}

// Reserve moves up to qty from available to allocated on one lot line and
// returns the quantity actually moved. The guard and the move are one atomic
// statement, so a concurrent reservation between the caller's snapshot and
// this call shrinks the take instead of overdrawing; a line with nothing
// left fails with ErrInsufficientStock.
func (s *ledgerService) Reserve(ctx context.Context, ex repositories.Executor, lineID uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}

	taken, err := s.lotRepo.ReserveUpTo(ctx, ex, lineID, qty)
	if err != nil {
		return 0, err
	}
	if taken == 0 {
		return 0, fmt.Errorf("reserve %d on line %s: %w", qty, lineID, common.ErrInsufficientStock)
	}
	return taken, nil
}

// CommitUsed moves qty from allocated to used on delivery. When the line
// holds less allocated quantity than requested, it drains what is there,
// logs the discrepancy loudly, and returns the applied amount together with
// ErrInconsistentLedger so the caller can surface it.
func (s *ledgerService) CommitUsed(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("commit quantity must be positive, got %d", qty)
	}

	ok, err := s.lotRepo.CommitUsedLine(ctx, ex, lotID, productID, variantID, qty)
	if err != nil {
		return 0, err
	}
	if ok {
		return qty, nil
	}

	applied, err := s.lotRepo.ClampCommitLine(ctx, ex, lotID, productID, variantID)
	if err != nil {
		return 0, err
	}
	s.reportInconsistency("commit", lotID, productID, variantID, qty, applied)
	return applied, fmt.Errorf("commit %d applied %d on lot %s: %w", qty, applied, lotID, common.ErrInconsistentLedger)
}

// Release moves qty from allocated back to available on cancellation, with
// the same clamp-and-report behavior as CommitUsed when the books disagree.
func (s *ledgerService) Release(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("release quantity must be positive, got %d", qty)
	}

	ok, err := s.lotRepo.ReleaseLine(ctx, ex, lotID, productID, variantID, qty)
	if err != nil {
		return 0, err
	}
	if ok {
		return qty, nil
	}

	applied, err := s.lotRepo.ClampReleaseLine(ctx, ex, lotID, productID, variantID)
	if err != nil {
		return 0, err
	}
	s.reportInconsistency("release", lotID, productID, variantID, qty, applied)
	return applied, fmt.Errorf("release %d applied %d on lot %s: %w", qty, applied, lotID, common.ErrInconsistentLedger)
}

// reportInconsistency logs a clamp with the structured event field alerting
// keys on. A clamp means a prior bookkeeping bug.
func (s *ledgerService) reportInconsistency(op string, lotID, productID uuid.UUID, variantID *uuid.UUID, requested, applied int) {
	fields := []zap.Field{
		zap.String("event", "inconsistent_ledger"),
		zap.String("op", op),
		zap.String("lot_id", lotID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("requested", requested),
		zap.Int("applied", applied),
	}
	if variantID != nil {
		fields = append(fields, zap.String("variant_id", variantID.String()))
	}
	s.logger.Error("ledger inconsistency: allocated below requested, clamped to zero", fields...)
}
