package jobs

import (
	"context"
	"time"

	"lotwise/internal/repositories"
	"lotwise/internal/services"

	"go.uber.org/zap"
)

// MaintenanceService holds the periodic housekeeping tasks: the expiry sweep,
// the catalog stock resync and the expiring-soon advisory. Each task is also
// callable directly so operators can trigger a run over HTTP.
type MaintenanceService struct {
	lotRepo       repositories.LotRepository
	stockService  services.StockService
	logger        *zap.Logger
	expiryHorizon time.Duration
	now           func() time.Time
}

func NewMaintenanceService(lotRepo repositories.LotRepository, stockService services.StockService,
	expiryHorizon time.Duration, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{
		lotRepo:       lotRepo,
		stockService:  stockService,
		logger:        logger,
		expiryHorizon: expiryHorizon,
		now:           time.Now,
	}
}

// ExpireLots flips every active lot past its expiry date to expired. The
// allocator filters on the live expiry date as well, so the sweep is about
// keeping the cached status column honest, not about correctness.
func (m *MaintenanceService) ExpireLots(ctx context.Context) (int64, error) {
	expired, err := m.lotRepo.ExpirePastLots(ctx, m.now())
	if err != nil {
		m.logger.Error("expiry sweep failed", zap.Error(err))
		return 0, err
	}
	if expired > 0 {
		m.logger.Info("expiry sweep flipped lots", zap.Int64("expired", expired))
	}
	return expired, nil
}

// ResyncStock recomputes the denormalized catalog stock counters from the
// lot ledger.
func (m *MaintenanceService) ResyncStock(ctx context.Context) (int, error) {
	updated, err := m.stockService.ResyncCatalog(ctx)
	if err != nil {
		m.logger.Error("stock resync failed", zap.Error(err))
		return updated, err
	}
	return updated, nil
}

// ExpiringSoon logs an advisory for every active lot that expires within the
// configured horizon, so warehouse staff can discount or pull stock before
// the sweep writes it off.
func (m *MaintenanceService) ExpiringSoon(ctx context.Context) (int, error) {
	lots, err := m.lotRepo.ListExpiring(ctx, m.now(), m.expiryHorizon)
	if err != nil {
		m.logger.Error("expiring-soon scan failed", zap.Error(err))
		return 0, err
	}
	for _, lot := range lots {
		m.logger.Warn("lot expiring soon",
			zap.String("lot_number", lot.LotNumber),
			zap.String("supplier", lot.SupplierName),
			zap.Timep("expiry_date", lot.ExpiryDate))
	}
	return len(lots), nil
}
