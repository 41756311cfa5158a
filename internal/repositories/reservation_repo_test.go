package repositories

import (
	"context"
	"testing"
	"time"

	"lotwise/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ReservationRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ReservationRepository
	lotID   uuid.UUID
	orderID uuid.UUID
	now     time.Time
	context context.Context
}

func (suite *ReservationRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewReservationRepo(mock)
	suite.lotID = uuid.New()
	suite.orderID = uuid.New()
	suite.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *ReservationRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestReservationRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ReservationRepoTestSuite))
}

func (suite *ReservationRepoTestSuite) openRow(id uuid.UUID) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "lot_id", "order_id", "status", "reserved_at", "delivered_at", "cancelled_at",
	}).AddRow(id, suite.lotID, suite.orderID, models.ReservationAllocated,
		suite.now.Add(-time.Hour), (*time.Time)(nil), (*time.Time)(nil))
}

func (suite *ReservationRepoTestSuite) TestGetOrCreateForOrder_ReturnsExisting() {
	existing := uuid.New()
	suite.mock.ExpectQuery(`SELECT .* FROM reservations`).
		WithArgs(suite.lotID, suite.orderID).
		WillReturnRows(suite.openRow(existing))

	res, err := suite.repo.GetOrCreateForOrder(suite.context, suite.mock, suite.lotID, suite.orderID, suite.now)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), existing, res.ID)
	assert.Equal(suite.T(), models.ReservationAllocated, res.Status)
}

func (suite *ReservationRepoTestSuite) TestGetOrCreateForOrder_CreatesWhenMissing() {
	suite.mock.ExpectQuery(`SELECT .* FROM reservations`).
		WithArgs(suite.lotID, suite.orderID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "lot_id", "order_id", "status", "reserved_at", "delivered_at", "cancelled_at",
		}))
	suite.mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(pgxmock.AnyArg(), suite.lotID, suite.orderID, models.ReservationAllocated, suite.now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := suite.repo.GetOrCreateForOrder(suite.context, suite.mock, suite.lotID, suite.orderID, suite.now)
	assert.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), uuid.Nil, res.ID)
	assert.Equal(suite.T(), suite.lotID, res.LotID)
	assert.Equal(suite.T(), suite.now, res.ReservedAt)
}

// Two allocations race on the same (lot, order): the loser's insert is
// swallowed by the partial unique index and it adopts the winner's record.
func (suite *ReservationRepoTestSuite) TestGetOrCreateForOrder_ConvergesOnConcurrentInsert() {
	winner := uuid.New()
	suite.mock.ExpectQuery(`SELECT .* FROM reservations`).
		WithArgs(suite.lotID, suite.orderID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "lot_id", "order_id", "status", "reserved_at", "delivered_at", "cancelled_at",
		}))
	suite.mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(pgxmock.AnyArg(), suite.lotID, suite.orderID, models.ReservationAllocated, suite.now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	suite.mock.ExpectQuery(`SELECT .* FROM reservations`).
		WithArgs(suite.lotID, suite.orderID).
		WillReturnRows(suite.openRow(winner))

	res, err := suite.repo.GetOrCreateForOrder(suite.context, suite.mock, suite.lotID, suite.orderID, suite.now)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), winner, res.ID)
}

func (suite *ReservationRepoTestSuite) TestMarkDelivered_GuardsTerminalState() {
	id := uuid.New()
	suite.mock.ExpectExec(`UPDATE reservations`).
		WithArgs(id, suite.now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.MarkDelivered(suite.context, suite.mock, id, suite.now)
	assert.NoError(suite.T(), err)
}
