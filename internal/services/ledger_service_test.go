package services

import (
	"context"
	"testing"

	"lotwise/internal/common"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	db          pgxmock.PgxPoolIface
	mockLotRepo *MockLotRepository
	service     *ledgerService
	lotID       uuid.UUID
	productID   uuid.UUID
	context     context.Context
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.db = db

	suite.mockLotRepo = &MockLotRepository{}

	svc := NewLedgerService(suite.mockLotRepo, zap.NewNop())
	suite.service = svc.(*ledgerService)

	suite.lotID = uuid.New()
	suite.productID = uuid.New()
	suite.context = context.Background()
}

func (suite *LedgerServiceTestSuite) TearDownTest() {
	suite.mockLotRepo.AssertExpectations(suite.T())
	assert.NoError(suite.T(), suite.db.ExpectationsWereMet())
	suite.db.Close()
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (suite *LedgerServiceTestSuite) TestReserve_TakesRequested() {
	lineID := uuid.New()
	suite.mockLotRepo.On("ReserveUpTo", mock.Anything, mock.Anything, lineID, 5).
		Return(5, nil).Once()

	taken, err := suite.service.Reserve(suite.context, suite.db, lineID, 5)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 5, taken)
}

func (suite *LedgerServiceTestSuite) TestReserve_ShrinksToAvailable() {
	lineID := uuid.New()
	suite.mockLotRepo.On("ReserveUpTo", mock.Anything, mock.Anything, lineID, 10).
		Return(4, nil).Once()

	taken, err := suite.service.Reserve(suite.context, suite.db, lineID, 10)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, taken)
}

func (suite *LedgerServiceTestSuite) TestReserve_DrainedLineIsInsufficient() {
	lineID := uuid.New()
	suite.mockLotRepo.On("ReserveUpTo", mock.Anything, mock.Anything, lineID, 10).
		Return(0, nil).Once()

	taken, err := suite.service.Reserve(suite.context, suite.db, lineID, 10)
	assert.ErrorIs(suite.T(), err, common.ErrInsufficientStock)
	assert.Equal(suite.T(), 0, taken)
}

func (suite *LedgerServiceTestSuite) TestReserve_RejectsNonPositive() {
	_, err := suite.service.Reserve(suite.context, suite.db, uuid.New(), 0)
	assert.Error(suite.T(), err)
}

func (suite *LedgerServiceTestSuite) TestCommitUsed_Success() {
	suite.mockLotRepo.On("CommitUsedLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 4).
		Return(true, nil).Once()

	applied, err := suite.service.CommitUsed(suite.context, suite.db, suite.lotID, suite.productID, nil, 4)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, applied)
}

func (suite *LedgerServiceTestSuite) TestCommitUsed_ClampsOnInconsistency() {
	suite.mockLotRepo.On("CommitUsedLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 10).
		Return(false, nil).Once()
	suite.mockLotRepo.On("ClampCommitLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil)).
		Return(3, nil).Once()

	applied, err := suite.service.CommitUsed(suite.context, suite.db, suite.lotID, suite.productID, nil, 10)
	assert.ErrorIs(suite.T(), err, common.ErrInconsistentLedger)
	assert.Equal(suite.T(), 3, applied)
}

func (suite *LedgerServiceTestSuite) TestRelease_Success() {
	suite.mockLotRepo.On("ReleaseLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 2).
		Return(true, nil).Once()

	applied, err := suite.service.Release(suite.context, suite.db, suite.lotID, suite.productID, nil, 2)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, applied)
}

func (suite *LedgerServiceTestSuite) TestRelease_ClampsOnInconsistency() {
	suite.mockLotRepo.On("ReleaseLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil), 8).
		Return(false, nil).Once()
	suite.mockLotRepo.On("ClampReleaseLine", mock.Anything, mock.Anything, suite.lotID, suite.productID, (*uuid.UUID)(nil)).
		Return(0, nil).Once()

	applied, err := suite.service.Release(suite.context, suite.db, suite.lotID, suite.productID, nil, 8)
	assert.ErrorIs(suite.T(), err, common.ErrInconsistentLedger)
	assert.Equal(suite.T(), 0, applied)
}
