package services

import (
	"context"
	"fmt"
	"time"

	"lotwise/internal/caching"
	"lotwise/internal/models"
	"lotwise/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stockCacheTTL = 30 * time.Second

// StockService answers availability questions by summing lot lines across
// active, unexpired lots. Plain availability reads go through the cache;
// summaries and availability checks always hit the ledger tables.
type StockService interface {
	Summary(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.StockSummary, error)
	GetAvailable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error)
	CheckAvailability(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) (*models.AvailabilityCheck, error)
	ResyncCatalog(ctx context.Context) (int, error)
}

type stockService struct {
	lotRepo     repositories.LotRepository
	productRepo repositories.ProductRepository
	cache       caching.CacheService
	logger      *zap.Logger
	now         func() time.Time
}

func NewStockService(lotRepo repositories.LotRepository, productRepo repositories.ProductRepository,
	cache caching.CacheService, logger *zap.Logger) StockService {
	return &stockService{
		lotRepo:     lotRepo,
		productRepo: productRepo,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *stockService) Summary(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.StockSummary, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product ID is required")
	}
	return s.lotRepo.SummarizeStock(ctx, productID, variantID, s.now())
}

func (s *stockService) GetAvailable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	if productID == uuid.Nil {
		return 0, fmt.Errorf("product ID is required")
	}

	if s.cache != nil {
		cached, err := s.cache.GetStock(ctx, productID, variantID)
		if err != nil {
			s.logger.Warn("stock cache read failed", zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	summary, err := s.lotRepo.SummarizeStock(ctx, productID, variantID, s.now())
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetStock(ctx, productID, variantID, summary.TotalAvailable, stockCacheTTL); err != nil {
			s.logger.Warn("stock cache write failed", zap.Error(err))
		}
	}
	return summary.TotalAvailable, nil
}

// CheckAvailability reports whether qty could be allocated right now. The
// answer is advisory: stock may move between the check and the allocation,
// which is why the allocator re-checks with guarded updates.
func (s *stockService) CheckAvailability(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) (*models.AvailabilityCheck, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	available, err := s.GetAvailable(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	check := &models.AvailabilityCheck{Available: available >= qty}
	if !check.Available {
		check.Shortfall = qty - available
	}
	return check, nil
}

// ResyncCatalog recomputes the denormalized stock_cached column on every
// product and variant from the lot ledger, and drops the Redis entries so
// the next read repopulates them. Returns the number of records updated.
func (s *stockService) ResyncCatalog(ctx context.Context) (int, error) {
	now := s.now()
	updated := 0

	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		products, err := s.productRepo.List(ctx, pageSize, offset)
		if err != nil {
			return updated, fmt.Errorf("list products: %w", err)
		}
		if len(products) == 0 {
			break
		}

		for _, product := range products {
			summary, err := s.lotRepo.SummarizeStock(ctx, product.ID, nil, now)
			if err != nil {
				return updated, fmt.Errorf("summarize product %s: %w", product.ID, err)
			}
			if err := s.productRepo.UpdateStockCached(ctx, product.ID, summary.TotalAvailable); err != nil {
				return updated, fmt.Errorf("update product %s: %w", product.ID, err)
			}
			updated++

			if !product.HasVariants {
				continue
			}
			variants, err := s.productRepo.ListVariants(ctx, product.ID)
			if err != nil {
				return updated, fmt.Errorf("list variants of %s: %w", product.ID, err)
			}
			for _, variant := range variants {
				vid := variant.ID
				summary, err := s.lotRepo.SummarizeStock(ctx, product.ID, &vid, now)
				if err != nil {
					return updated, fmt.Errorf("summarize variant %s: %w", variant.ID, err)
				}
				if err := s.productRepo.UpdateVariantStockCached(ctx, variant.ID, summary.TotalAvailable); err != nil {
					return updated, fmt.Errorf("update variant %s: %w", variant.ID, err)
				}
				updated++
			}
		}

		if len(products) < pageSize {
			break
		}
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Warn("stock cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("catalog stock resynced", zap.Int("updated", updated))
	return updated, nil
}
