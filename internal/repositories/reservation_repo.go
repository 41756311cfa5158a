package repositories

import (
	"context"
	"errors"
	"time"

	"lotwise/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReservationRepository interface {
	GetOrCreateForOrder(ctx context.Context, ex Executor, lotID, orderID uuid.UUID, at time.Time) (*models.Reservation, error)
	AddItem(ctx context.Context, ex Executor, item *models.ReservationItem) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Reservation, error)
	ListByLot(ctx context.Context, lotID uuid.UUID) ([]*models.Reservation, error)
	MarkDelivered(ctx context.Context, ex Executor, id uuid.UUID, at time.Time) error
	MarkCancelled(ctx context.Context, ex Executor, id uuid.UUID, at time.Time) error
}

type reservationRepo struct {
	db Database
}

func NewReservationRepo(db Database) ReservationRepository {
	return &reservationRepo{db: db}
}

const reservationColumns = `id, lot_id, order_id, status, reserved_at, delivered_at, cancelled_at`

const openReservationQuery = `
	SELECT ` + reservationColumns + `
	FROM reservations
	WHERE lot_id = $1 AND order_id = $2 AND status = 'allocated'
`

// GetOrCreateForOrder returns the open reservation binding this lot to this
// order, creating it on first use. Split allocations for one order land in
// one reservation per lot. The insert defers to the partial unique index on
// open reservations, so two concurrent allocations for the same order and
// lot converge on one record instead of fragmenting the audit trail.
func (r *reservationRepo) GetOrCreateForOrder(ctx context.Context, ex Executor, lotID, orderID uuid.UUID, at time.Time) (*models.Reservation, error) {
	res, err := r.openReservation(ctx, ex, lotID, orderID)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	res = &models.Reservation{
		ID:         uuid.New(),
		LotID:      lotID,
		OrderID:    orderID,
		Status:     models.ReservationAllocated,
		ReservedAt: at,
	}
	insert := `
		INSERT INTO reservations (id, lot_id, order_id, status, reserved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lot_id, order_id) WHERE status = 'allocated' DO NOTHING
	`
	tag, err := ex.Exec(ctx, insert, res.ID, res.LotID, res.OrderID, res.Status, res.ReservedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() > 0 {
		return res, nil
	}
	// Lost the race: a concurrent allocation created the reservation first.
	return r.openReservation(ctx, ex, lotID, orderID)
}

func (r *reservationRepo) openReservation(ctx context.Context, ex Executor, lotID, orderID uuid.UUID) (*models.Reservation, error) {
	res := &models.Reservation{}
	err := ex.QueryRow(ctx, openReservationQuery, lotID, orderID).Scan(
		&res.ID, &res.LotID, &res.OrderID, &res.Status, &res.ReservedAt, &res.DeliveredAt, &res.CancelledAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *reservationRepo) AddItem(ctx context.Context, ex Executor, item *models.ReservationItem) error {
	query := `
		INSERT INTO reservation_items (id, reservation_id, product_id, variant_id, quantity, kind, parent_combo_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := ex.Exec(ctx, query,
		item.ID, item.ReservationID, item.ProductID, item.VariantID,
		item.Quantity, item.Kind, item.ParentComboID)
	return err
}

func (r *reservationRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE order_id = $1
		ORDER BY reserved_at ASC, id ASC
	`
	return r.queryWithItems(ctx, query, orderID)
}

func (r *reservationRepo) ListByLot(ctx context.Context, lotID uuid.UUID) ([]*models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE lot_id = $1
		ORDER BY reserved_at ASC, id ASC
	`
	return r.queryWithItems(ctx, query, lotID)
}

func (r *reservationRepo) queryWithItems(ctx context.Context, query string, arg any) ([]*models.Reservation, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res := &models.Reservation{}
		if err := rows.Scan(&res.ID, &res.LotID, &res.OrderID, &res.Status,
			&res.ReservedAt, &res.DeliveredAt, &res.CancelledAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, res := range reservations {
		items, err := r.itemsFor(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		res.Items = items
	}
	return reservations, nil
}

func (r *reservationRepo) itemsFor(ctx context.Context, reservationID uuid.UUID) ([]*models.ReservationItem, error) {
	query := `
		SELECT id, reservation_id, product_id, variant_id, quantity, kind, parent_combo_id
		FROM reservation_items
		WHERE reservation_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ReservationItem
	for rows.Next() {
		item := &models.ReservationItem{}
		if err := rows.Scan(&item.ID, &item.ReservationID, &item.ProductID, &item.VariantID,
			&item.Quantity, &item.Kind, &item.ParentComboID); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkDelivered stamps the terminal delivered state. The status guard keeps
// a racing double-delivery from stamping twice.
func (r *reservationRepo) MarkDelivered(ctx context.Context, ex Executor, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE reservations
		SET status = 'delivered', delivered_at = $2
		WHERE id = $1 AND status = 'allocated'
	`
	_, err := ex.Exec(ctx, query, id, at)
	return err
}

func (r *reservationRepo) MarkCancelled(ctx context.Context, ex Executor, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE reservations
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'allocated'
	`
	_, err := ex.Exec(ctx, query, id, at)
	return err
}
