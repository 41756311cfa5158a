package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lotwise/internal/common"
	"lotwise/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type LifecycleServiceTestSuite struct {
	suite.Suite
	db                  pgxmock.PgxPoolIface
	mockLotRepo         *MockLotRepository
	mockReservationRepo *MockReservationRepository
	mockCache           *MockCacheService
	service             *lifecycleService
	orderID             uuid.UUID
	lotID               uuid.UUID
	productID           uuid.UUID
	now                 time.Time
	context             context.Context
}

func (suite *LifecycleServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.db = db

	suite.mockLotRepo = &MockLotRepository{}
	suite.mockReservationRepo = &MockReservationRepository{}
	suite.mockCache = &MockCacheService{}
	suite.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ledger := NewLedgerService(suite.mockLotRepo, zap.NewNop())
	svc := NewLifecycleService(db, suite.mockLotRepo, suite.mockReservationRepo, ledger, suite.mockCache, zap.NewNop())
	suite.service = svc.(*lifecycleService)
	suite.service.now = func() time.Time { return suite.now }

	suite.orderID = uuid.New()
	suite.lotID = uuid.New()
	suite.productID = uuid.New()
	suite.context = context.Background()
}

func (suite *LifecycleServiceTestSuite) TearDownTest() {
	suite.mockLotRepo.AssertExpectations(suite.T())
	suite.mockReservationRepo.AssertExpectations(suite.T())
	suite.mockCache.AssertExpectations(suite.T())
	assert.NoError(suite.T(), suite.db.ExpectationsWereMet())
	suite.db.Close()
}

func TestLifecycleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LifecycleServiceTestSuite))
}

func (suite *LifecycleServiceTestSuite) reservation(status models.ReservationStatus, quantities ...int) *models.Reservation {
	res := &models.Reservation{
		ID:         uuid.New(),
		LotID:      suite.lotID,
		OrderID:    suite.orderID,
		Status:     status,
		ReservedAt: suite.now.Add(-time.Hour),
	}
	for _, qty := range quantities {
		res.Items = append(res.Items, &models.ReservationItem{
			ID:            uuid.New(),
			ReservationID: res.ID,
			ProductID:     suite.productID,
			Quantity:      qty,
			Kind:          models.LineItemRegular,
		})
	}
	return res
}

func (suite *LifecycleServiceTestSuite) TestOnDelivered_CommitsAllItems() {
	res := suite.reservation(models.ReservationAllocated, 4, 2)
	suite.mockReservationRepo.On("ListByOrder", mock.Anything, suite.orderID).
		Return([]*models.Reservation{res}, nil).Once()

	suite.db.ExpectBegin()
	suite.mockLotRepo.On("CommitUsedLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 4).
		Return(true, nil).Once()
	suite.mockLotRepo.On("CommitUsedLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 2).
		Return(true, nil).Once()
	suite.mockReservationRepo.On("MarkDelivered", mock.Anything, mock.Anything, res.ID, suite.now).
		Return(nil).Once()
	suite.mockLotRepo.On("RecomputeStatus", mock.Anything, mock.Anything, suite.lotID, suite.now).
		Return(nil).Once()
	suite.db.ExpectCommit()
	suite.mockCache.On("DeleteStock", mock.Anything, suite.productID, (*uuid.UUID)(nil)).
		Return(nil).Twice()

	result, err := suite.service.OnDelivered(suite.context, suite.orderID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), []uuid.UUID{suite.lotID}, result.UpdatedLots)
	assert.Empty(suite.T(), result.AlreadyProcessed)
}

func (suite *LifecycleServiceTestSuite) TestOnDelivered_SkipsTerminalReservations() {
	delivered := suite.reservation(models.ReservationDelivered, 3)
	suite.mockReservationRepo.On("ListByOrder", mock.Anything, suite.orderID).
		Return([]*models.Reservation{delivered}, nil).Once()

	result, err := suite.service.OnDelivered(suite.context, suite.orderID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Empty(suite.T(), result.UpdatedLots)
	assert.Equal(suite.T(), []uuid.UUID{delivered.ID}, result.AlreadyProcessed)
}

func (suite *LifecycleServiceTestSuite) TestOnDelivered_ClampReportsButCompletes() {
	res := suite.reservation(models.ReservationAllocated, 10)
	suite.mockReservationRepo.On("ListByOrder", mock.Anything, suite.orderID).
		Return([]*models.Reservation{res}, nil).Once()

	suite.db.ExpectBegin()
	suite.mockLotRepo.On("CommitUsedLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 10).
		Return(false, nil).Once()
	suite.mockLotRepo.On("ClampCommitLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil)).
		Return(6, nil).Once()
	suite.mockReservationRepo.On("MarkDelivered", mock.Anything, mock.Anything, res.ID, suite.now).
		Return(nil).Once()
	suite.mockLotRepo.On("RecomputeStatus", mock.Anything, mock.Anything, suite.lotID, suite.now).
		Return(nil).Once()
	suite.db.ExpectCommit()
	suite.mockCache.On("DeleteStock", mock.Anything, suite.productID, (*uuid.UUID)(nil)).
		Return(nil).Once()

	result, err := suite.service.OnDelivered(suite.context, suite.orderID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Success)
	assert.Len(suite.T(), result.Errors, 1)
	// Reservation still reaches its terminal state despite the clamp.
	assert.Equal(suite.T(), []uuid.UUID{suite.lotID}, result.UpdatedLots)
}

func (suite *LifecycleServiceTestSuite) TestOnCancelled_ReleasesAllItems() {
	res := suite.reservation(models.ReservationAllocated, 5)
	suite.mockReservationRepo.On("ListByOrder", mock.Anything, suite.orderID).
		Return([]*models.Reservation{res}, nil).Once()

	suite.db.ExpectBegin()
	suite.mockLotRepo.On("ReleaseLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 5).
		Return(true, nil).Once()
	suite.mockReservationRepo.On("MarkCancelled", mock.Anything, mock.Anything, res.ID, suite.now).
		Return(nil).Once()
	suite.mockLotRepo.On("RecomputeStatus", mock.Anything, mock.Anything, suite.lotID, suite.now).
		Return(nil).Once()
	suite.db.ExpectCommit()
	suite.mockCache.On("DeleteStock", mock.Anything, suite.productID, (*uuid.UUID)(nil)).
		Return(nil).Once()

	result, err := suite.service.OnCancelled(suite.context, suite.orderID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), []uuid.UUID{suite.lotID}, result.UpdatedLots)
}

func (suite *LifecycleServiceTestSuite) TestOnCancelled_MixedTerminalAndOpen() {
	open := suite.reservation(models.ReservationAllocated, 2)
	done := suite.reservation(models.ReservationCancelled, 3)
	suite.mockReservationRepo.On("ListByOrder", mock.Anything, suite.orderID).
		Return([]*models.Reservation{done, open}, nil).Once()

	suite.db.ExpectBegin()
	suite.mockLotRepo.On("ReleaseLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 2).
		Return(true, nil).Once()
	suite.mockReservationRepo.On("MarkCancelled", mock.Anything, mock.Anything, open.ID, suite.now).
		Return(nil).Once()
	suite.mockLotRepo.On("RecomputeStatus", mock.Anything, mock.Anything, suite.lotID, suite.now).
		Return(nil).Once()
	suite.db.ExpectCommit()
	suite.mockCache.On("DeleteStock", mock.Anything, suite.productID, (*uuid.UUID)(nil)).
		Return(nil).Once()

	result, err := suite.service.OnCancelled(suite.context, suite.orderID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), []uuid.UUID{open.LotID}, result.UpdatedLots)
	assert.Equal(suite.T(), []uuid.UUID{done.ID}, result.AlreadyProcessed)
}

func (suite *LifecycleServiceTestSuite) TestOnDelivered_CacheEvictionFailureIsNotFatal() {
	res := suite.reservation(models.ReservationAllocated, 3)
	suite.mockReservationRepo.On("ListByOrder", mock.Anything, suite.orderID).
		Return([]*models.Reservation{res}, nil).Once()

	suite.db.ExpectBegin()
	suite.mockLotRepo.On("CommitUsedLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 3).
		Return(true, nil).Once()
	suite.mockReservationRepo.On("MarkDelivered", mock.Anything, mock.Anything, res.ID, suite.now).
		Return(nil).Once()
	suite.mockLotRepo.On("RecomputeStatus", mock.Anything, mock.Anything, suite.lotID, suite.now).
		Return(nil).Once()
	suite.db.ExpectCommit()
	suite.mockCache.On("DeleteStock", mock.Anything, suite.productID, (*uuid.UUID)(nil)).
		Return(errors.New("redis down")).Once()

	result, err := suite.service.OnDelivered(suite.context, suite.orderID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Success)
	assert.Equal(suite.T(), []uuid.UUID{suite.lotID}, result.UpdatedLots)
}

func (suite *LifecycleServiceTestSuite) TestTransition_NoReservations() {
	suite.mockReservationRepo.On("ListByOrder", mock.Anything, suite.orderID).
		Return([]*models.Reservation{}, nil).Once()

	_, err := suite.service.OnDelivered(suite.context, suite.orderID)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}
