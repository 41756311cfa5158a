package services

import (
	"context"
	"time"

	"lotwise/internal/models"
	"lotwise/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLotRepository struct {
	mock.Mock
}

func (m *MockLotRepository) Create(ctx context.Context, ex repositories.Executor, lot *models.Lot) error {
	args := m.Called(ctx, ex, lot)
	return args.Error(0)
}

func (m *MockLotRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lot), args.Error(1)
}

func (m *MockLotRepository) GetByNumber(ctx context.Context, lotNumber string) (*models.Lot, error) {
	args := m.Called(ctx, lotNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lot), args.Error(1)
}

func (m *MockLotRepository) List(ctx context.Context, limit, offset int) ([]*models.Lot, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Lot), args.Error(1)
}

func (m *MockLotRepository) ListExpiring(ctx context.Context, now time.Time, horizon time.Duration) ([]*models.Lot, error) {
	args := m.Called(ctx, now, horizon)
	return args.Get(0).([]*models.Lot), args.Error(1)
}

func (m *MockLotRepository) FindCompatible(ctx context.Context, receipt *models.StockReceipt) (*models.Lot, error) {
	args := m.Called(ctx, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lot), args.Error(1)
}

func (m *MockLotRepository) NextLotNumber(ctx context.Context, ex repositories.Executor, day time.Time) (string, error) {
	args := m.Called(ctx, ex, day)
	return args.String(0), args.Error(1)
}

func (m *MockLotRepository) AddLine(ctx context.Context, ex repositories.Executor, line *models.LotLine) error {
	args := m.Called(ctx, ex, line)
	return args.Error(0)
}

func (m *MockLotRepository) ReceiveIntoLine(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error) {
	args := m.Called(ctx, ex, lotID, productID, variantID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockLotRepository) ReserveUpTo(ctx context.Context, ex repositories.Executor, lineID uuid.UUID, qty int) (int, error) {
	args := m.Called(ctx, ex, lineID, qty)
	return args.Int(0), args.Error(1)
}

func (m *MockLotRepository) CommitUsedLine(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error) {
	args := m.Called(ctx, ex, lotID, productID, variantID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockLotRepository) ReleaseLine(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error) {
	args := m.Called(ctx, ex, lotID, productID, variantID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockLotRepository) ClampCommitLine(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	args := m.Called(ctx, ex, lotID, productID, variantID)
	return args.Int(0), args.Error(1)
}

func (m *MockLotRepository) ClampReleaseLine(ctx context.Context, ex repositories.Executor, lotID, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	args := m.Called(ctx, ex, lotID, productID, variantID)
	return args.Int(0), args.Error(1)
}

func (m *MockLotRepository) RecomputeStatus(ctx context.Context, ex repositories.Executor, lotID uuid.UUID, now time.Time) error {
	args := m.Called(ctx, ex, lotID, now)
	return args.Error(0)
}

func (m *MockLotRepository) ExpirePastLots(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLotRepository) FindEligibleLines(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) ([]*repositories.EligibleLine, error) {
	args := m.Called(ctx, productID, variantID, now)
	return args.Get(0).([]*repositories.EligibleLine), args.Error(1)
}

func (m *MockLotRepository) SummarizeStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) (*models.StockSummary, error) {
	args := m.Called(ctx, productID, variantID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockSummary), args.Error(1)
}

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) GetOrCreateForOrder(ctx context.Context, ex repositories.Executor, lotID, orderID uuid.UUID, at time.Time) (*models.Reservation, error) {
	args := m.Called(ctx, ex, lotID, orderID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockReservationRepository) AddItem(ctx context.Context, ex repositories.Executor, item *models.ReservationItem) error {
	args := m.Called(ctx, ex, item)
	return args.Error(0)
}

func (m *MockReservationRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Reservation, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]*models.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListByLot(ctx context.Context, lotID uuid.UUID) ([]*models.Reservation, error) {
	args := m.Called(ctx, lotID)
	return args.Get(0).([]*models.Reservation), args.Error(1)
}

func (m *MockReservationRepository) MarkDelivered(ctx context.Context, ex repositories.Executor, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, ex, id, at)
	return args.Error(0)
}

func (m *MockReservationRepository) MarkCancelled(ctx context.Context, ex repositories.Executor, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, ex, id, at)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Variant), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) ListVariants(ctx context.Context, productID uuid.UUID) ([]*models.Variant, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]*models.Variant), args.Error(1)
}

func (m *MockProductRepository) UpdateStockCached(ctx context.Context, productID uuid.UUID, qty int) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateVariantStockCached(ctx context.Context, variantID uuid.UUID, qty int) error {
	args := m.Called(ctx, variantID, qty)
	return args.Error(0)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*int, error) {
	args := m.Called(ctx, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int), args.Error(1)
}

func (m *MockCacheService) SetStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int, ttl time.Duration) error {
	args := m.Called(ctx, productID, variantID, qty, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) error {
	args := m.Called(ctx, productID, variantID)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockManifestArchive struct {
	mock.Mock
}

func (m *MockManifestArchive) ArchiveBulkReceipt(ctx context.Context, groupID string, receipt *models.BulkReceipt) error {
	args := m.Called(ctx, groupID, receipt)
	return args.Error(0)
}

func (m *MockManifestArchive) PresignedManifestURL(groupID string, expiry time.Duration) (string, error) {
	args := m.Called(groupID, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockManifestArchive) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
