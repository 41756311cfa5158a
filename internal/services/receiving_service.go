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

// ReceivingService turns incoming deliveries into lots. Single receipts are
// merged into a compatible existing lot when supplier and shelf-life dates
// match exactly; bulk intakes always open a fresh lot so one upload leaves
// one audit record.
type ReceivingService interface {
	ReceiveStock(ctx context.Context, receipt *models.StockReceipt) (*models.ReceiptResult, error)
	ReceiveBulk(ctx context.Context, receipt *models.BulkReceipt) (*models.BulkReceiptResult, error)
}

type receivingService struct {
	db       repositories.Database
	lotRepo  repositories.LotRepository
	manifest ManifestArchive
	logger   *zap.Logger
	now      func() time.Time
}

func NewReceivingService(db repositories.Database, lotRepo repositories.LotRepository,
	manifest ManifestArchive, logger *zap.Logger) ReceivingService {
	return &receivingService{
		db:       db,
		lotRepo:  lotRepo,
		manifest: manifest,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *receivingService) ReceiveStock(ctx context.Context, receipt *models.StockReceipt) (*models.ReceiptResult, error) {
	if err := validateReceipt(receipt); err != nil {
		return nil, err
	}

	existing, err := s.lotRepo.FindCompatible(ctx, receipt)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("find compatible lot: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin receive: %w", err)
	}
	defer tx.Rollback(ctx)

	if existing != nil {
		merged, err := s.lotRepo.ReceiveIntoLine(ctx, tx, existing.ID, receipt.ProductID, receipt.VariantID, receipt.Quantity)
		if err != nil {
			return nil, fmt.Errorf("merge into lot %s: %w", existing.LotNumber, err)
		}
		if !merged {
			// Compatible lot without a line for this product yet.
			line := &models.LotLine{
				ID:        uuid.New(),
				LotID:     existing.ID,
				ProductID: receipt.ProductID,
				VariantID: receipt.VariantID,
				Total:     receipt.Quantity,
				Available: receipt.Quantity,
			}
			if err := s.lotRepo.AddLine(ctx, tx, line); err != nil {
				return nil, fmt.Errorf("add line to lot %s: %w", existing.LotNumber, err)
			}
		}
		if err := s.lotRepo.RecomputeStatus(ctx, tx, existing.ID, s.now()); err != nil {
			return nil, fmt.Errorf("recompute lot status: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		s.logger.Info("receipt merged into existing lot",
			zap.String("lot_number", existing.LotNumber),
			zap.String("product_id", receipt.ProductID.String()),
			zap.Int("quantity", receipt.Quantity))
		return &models.ReceiptResult{LotID: existing.ID, LotNumber: existing.LotNumber, Merged: true}, nil
	}

	now := s.now()
	lotNumber, err := s.lotRepo.NextLotNumber(ctx, tx, now)
	if err != nil {
		return nil, fmt.Errorf("next lot number: %w", err)
	}

	lot := &models.Lot{
		ID:                uuid.New(),
		LotNumber:         lotNumber,
		SupplierName:      receipt.SupplierName,
		InvoiceRef:        receipt.InvoiceRef,
		Notes:             receipt.Notes,
		ReceivedAt:        now,
		ManufacturingDate: receipt.ManufacturingDate,
		ExpiryDate:        receipt.ExpiryDate,
		BestBeforeDate:    receipt.BestBeforeDate,
		Status:            models.LotStatusActive,
		Lines: []*models.LotLine{{
			ID:        uuid.New(),
			ProductID: receipt.ProductID,
			VariantID: receipt.VariantID,
			Total:     receipt.Quantity,
			Available: receipt.Quantity,
		}},
	}
	if err := s.lotRepo.Create(ctx, tx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("receipt opened new lot",
		zap.String("lot_number", lotNumber),
		zap.String("supplier", receipt.SupplierName),
		zap.String("product_id", receipt.ProductID.String()),
		zap.Int("quantity", receipt.Quantity))
	return &models.ReceiptResult{LotID: lot.ID, LotNumber: lotNumber, Merged: false}, nil
}

// ReceiveBulk lands all lines of an intake in one new lot. Zero-quantity
// lines are skipped and counted, not rejected; suppliers routinely pad
// manifests with out-of-stock rows.
func (s *receivingService) ReceiveBulk(ctx context.Context, receipt *models.BulkReceipt) (*models.BulkReceiptResult, error) {
	if receipt.SupplierName == "" {
		return nil, fmt.Errorf("supplier name is required")
	}
	if receipt.ManufacturingDate.IsZero() {
		return nil, fmt.Errorf("manufacturing date is required")
	}
	if len(receipt.Lines) == 0 {
		return nil, fmt.Errorf("at least one receipt line is required")
	}
	for i, line := range receipt.Lines {
		if line.ProductID == uuid.Nil {
			return nil, fmt.Errorf("line %d: product ID is required", i)
		}
		if line.Quantity < 0 {
			return nil, fmt.Errorf("line %d: quantity must not be negative, got %d", i, line.Quantity)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin bulk receive: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.now()
	lotNumber, err := s.lotRepo.NextLotNumber(ctx, tx, now)
	if err != nil {
		return nil, fmt.Errorf("next lot number: %w", err)
	}
	groupID := lotNumber
	if receipt.GroupID != nil && *receipt.GroupID != "" {
		groupID = *receipt.GroupID
	}

	lot := &models.Lot{
		ID:                uuid.New(),
		LotNumber:         lotNumber,
		SupplierName:      receipt.SupplierName,
		InvoiceRef:        receipt.InvoiceRef,
		Notes:             receipt.Notes,
		ReceivedAt:        now,
		ManufacturingDate: receipt.ManufacturingDate,
		ExpiryDate:        receipt.ExpiryDate,
		BestBeforeDate:    receipt.BestBeforeDate,
		Status:            models.LotStatusActive,
	}

	skipped := 0
	for _, line := range receipt.Lines {
		if line.Quantity == 0 {
			skipped++
			continue
		}
		lot.Lines = append(lot.Lines, &models.LotLine{
			ID:                uuid.New(),
			ProductID:         line.ProductID,
			VariantID:         line.VariantID,
			Total:             line.Quantity,
			Available:         line.Quantity,
			ManufacturingDate: line.ManufacturingDate,
			ExpiryDate:        line.ExpiryDate,
			BestBeforeDate:    line.BestBeforeDate,
		})
	}
	if len(lot.Lines) == 0 {
		return nil, fmt.Errorf("all %d lines have zero quantity", len(receipt.Lines))
	}

	if err := s.lotRepo.Create(ctx, tx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// Archiving is best effort: the stock is already booked, a missing
	// manifest copy must not fail the intake.
	if s.manifest != nil {
		if err := s.manifest.ArchiveBulkReceipt(ctx, groupID, receipt); err != nil {
			s.logger.Warn("manifest archive failed",
				zap.String("group_id", groupID),
				zap.String("lot_number", lotNumber),
				zap.Error(err))
		}
	}

	s.logger.Info("bulk intake received",
		zap.String("group_id", groupID),
		zap.String("lot_number", lotNumber),
		zap.Int("lines", len(lot.Lines)),
		zap.Int("skipped", skipped))
	return &models.BulkReceiptResult{
		GroupID:   groupID,
		LotID:     lot.ID,
		LotNumber: lotNumber,
		LineCount: len(lot.Lines),
		Skipped:   skipped,
	}, nil
}

func validateReceipt(receipt *models.StockReceipt) error {
	if receipt.ProductID == uuid.Nil {
		return fmt.Errorf("product ID is required")
	}
	if receipt.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", receipt.Quantity)
	}
	if receipt.SupplierName == "" {
		return fmt.Errorf("supplier name is required")
	}
	if receipt.ManufacturingDate.IsZero() {
		return fmt.Errorf("manufacturing date is required")
	}
	return nil
}
