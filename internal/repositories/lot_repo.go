package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotwise/internal/common"
	"lotwise/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EligibleLine is one allocation candidate returned by the FEFO query:
// a lot line with stock, joined with the lot identity and the effective
// shelf-life dates (line override or lot default).
type EligibleLine struct {
	LotID             uuid.UUID
	LotNumber         string
	LineID            uuid.UUID
	Available         int
	ExpiryDate        *time.Time
	ManufacturingDate time.Time
}

type LotRepository interface {
	Create(ctx context.Context, ex Executor, lot *models.Lot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lot, error)
	GetByNumber(ctx context.Context, lotNumber string) (*models.Lot, error)
	List(ctx context.Context, limit, offset int) ([]*models.Lot, error)
	ListExpiring(ctx context.Context, now time.Time, horizon time.Duration) ([]*models.Lot, error)
	FindCompatible(ctx context.Context, receipt *models.StockReceipt) (*models.Lot, error)
	NextLotNumber(ctx context.Context, ex Executor, day time.Time) (string, error)

	AddLine(ctx context.Context, ex Executor, line *models.LotLine) error
	ReceiveIntoLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error)

	ReserveUpTo(ctx context.Context, ex Executor, lineID uuid.UUID, qty int) (int, error)
	CommitUsedLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error)
	ReleaseLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error)
	ClampCommitLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID) (int, error)
	ClampReleaseLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID) (int, error)

	RecomputeStatus(ctx context.Context, ex Executor, lotID uuid.UUID, now time.Time) error
	ExpirePastLots(ctx context.Context, now time.Time) (int64, error)

	FindEligibleLines(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) ([]*EligibleLine, error)
	SummarizeStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) (*models.StockSummary, error)
}

type lotRepo struct {
	db Database
}

func NewLotRepo(db Database) LotRepository {
	return &lotRepo{db: db}
}

func (r *lotRepo) Create(ctx context.Context, ex Executor, lot *models.Lot) error {
	query := `
		INSERT INTO lots (id, lot_number, supplier_name, invoice_ref, notes, received_at,
			manufacturing_date, expiry_date, best_before_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	_, err := ex.Exec(ctx, query,
		lot.ID, lot.LotNumber, lot.SupplierName, lot.InvoiceRef, lot.Notes, lot.ReceivedAt,
		lot.ManufacturingDate, lot.ExpiryDate, lot.BestBeforeDate, lot.Status)
	if err != nil {
		return err
	}
	for _, line := range lot.Lines {
		line.LotID = lot.ID
		if err := r.AddLine(ctx, ex, line); err != nil {
			return err
		}
	}
	return nil
}

func (r *lotRepo) AddLine(ctx context.Context, ex Executor, line *models.LotLine) error {
	query := `
		INSERT INTO lot_lines (id, lot_id, product_id, variant_id, total, available, allocated, used,
			manufacturing_date, expiry_date, best_before_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`
	_, err := ex.Exec(ctx, query,
		line.ID, line.LotID, line.ProductID, line.VariantID,
		line.Total, line.Available, line.Allocated, line.Used,
		line.ManufacturingDate, line.ExpiryDate, line.BestBeforeDate)
	return err
}

const lotColumns = `id, lot_number, supplier_name, invoice_ref, notes, received_at,
		manufacturing_date, expiry_date, best_before_date, status, created_at, updated_at`

func scanLot(row pgx.Row) (*models.Lot, error) {
	lot := &models.Lot{}
	err := row.Scan(&lot.ID, &lot.LotNumber, &lot.SupplierName, &lot.InvoiceRef, &lot.Notes,
		&lot.ReceivedAt, &lot.ManufacturingDate, &lot.ExpiryDate, &lot.BestBeforeDate,
		&lot.Status, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lot: %w", common.ErrNotFound)
		}
		return nil, err
	}
	return lot, nil
}

func (r *lotRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	lot, err := scanLot(r.db.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	lot.Lines, err = r.linesForLot(ctx, id)
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *lotRepo) GetByNumber(ctx context.Context, lotNumber string) (*models.Lot, error) {
	lot, err := scanLot(r.db.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE lot_number = $1`, lotNumber))
	if err != nil {
		return nil, err
	}
	lot.Lines, err = r.linesForLot(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *lotRepo) linesForLot(ctx context.Context, lotID uuid.UUID) ([]*models.LotLine, error) {
	query := `
		SELECT id, lot_id, product_id, variant_id, total, available, allocated, used,
			manufacturing_date, expiry_date, best_before_date, updated_at
		FROM lot_lines
		WHERE lot_id = $1
		ORDER BY product_id, variant_id
	`
	rows, err := r.db.Query(ctx, query, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*models.LotLine
	for rows.Next() {
		line := &models.LotLine{}
		if err := rows.Scan(&line.ID, &line.LotID, &line.ProductID, &line.VariantID,
			&line.Total, &line.Available, &line.Allocated, &line.Used,
			&line.ManufacturingDate, &line.ExpiryDate, &line.BestBeforeDate, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *lotRepo) List(ctx context.Context, limit, offset int) ([]*models.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.queryLots(ctx, query, limit, offset)
}

func (r *lotRepo) ListExpiring(ctx context.Context, now time.Time, horizon time.Duration) ([]*models.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE status = 'active' AND expiry_date IS NOT NULL AND expiry_date >= $1 AND expiry_date < $2
		ORDER BY expiry_date ASC, lot_number ASC
	`
	return r.queryLots(ctx, query, now, now.Add(horizon))
}

func (r *lotRepo) queryLots(ctx context.Context, query string, args ...any) ([]*models.Lot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []*models.Lot
	for rows.Next() {
		lot := &models.Lot{}
		if err := rows.Scan(&lot.ID, &lot.LotNumber, &lot.SupplierName, &lot.InvoiceRef, &lot.Notes,
			&lot.ReceivedAt, &lot.ManufacturingDate, &lot.ExpiryDate, &lot.BestBeforeDate,
			&lot.Status, &lot.CreatedAt, &lot.UpdatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// FindCompatible looks for the most recent active lot with the same supplier
// and identical shelf-life dates. NULL dates must match NULL, so the
// comparisons use IS NOT DISTINCT FROM.
func (r *lotRepo) FindCompatible(ctx context.Context, receipt *models.StockReceipt) (*models.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE status = 'active'
		  AND supplier_name = $1
		  AND manufacturing_date = $2
		  AND expiry_date IS NOT DISTINCT FROM $3
		  AND best_before_date IS NOT DISTINCT FROM $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	lot, err := scanLot(r.db.QueryRow(ctx, query,
		receipt.SupplierName, receipt.ManufacturingDate, receipt.ExpiryDate, receipt.BestBeforeDate))
	if err != nil {
		return nil, err
	}
	lot.Lines, err = r.linesForLot(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// NextLotNumber produces the date-coded sequential number for a lot created
// on the given day, e.g. LOT-20250110-0003. The per-day counter row is
// bumped with an atomic upsert, so a concurrent intake for the same day
// blocks on the row lock and gets the next slot once the first commits.
func (r *lotRepo) NextLotNumber(ctx context.Context, ex Executor, day time.Time) (string, error) {
	query := `
		INSERT INTO lot_day_seqs (day, seq) VALUES ($1::date, 1)
		ON CONFLICT (day) DO UPDATE SET seq = lot_day_seqs.seq + 1
		RETURNING seq
	`
	var seq int
	if err := ex.QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("LOT-%s-%04d", day.Format("20060102"), seq), nil
}

const lineMatch = `lot_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3`

// ReceiveIntoLine grows total and available together for a merge. Returns
// false when the lot has no line for the product/variant yet.
func (r *lotRepo) ReceiveIntoLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error) {
	query := `
		UPDATE lot_lines
		SET total = total + $4, available = available + $4, updated_at = NOW()
		WHERE ` + lineMatch
	tag, err := ex.Exec(ctx, query, lotID, productID, variantID, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReserveUpTo atomically moves min(available, qty) from available to
// allocated and reports how much it took. The ledger uses this so a
// concurrent reservation between snapshot and reserve shrinks the take
// instead of failing the whole lot.
func (r *lotRepo) ReserveUpTo(ctx context.Context, ex Executor, lineID uuid.UUID, qty int) (int, error) {
	query := `
		WITH take AS (
			SELECT id, LEAST(available, $2::int) AS qty
			FROM lot_lines
			WHERE id = $1 AND available > 0
			FOR UPDATE
		)
		UPDATE lot_lines ll
		SET available = ll.available - take.qty,
			allocated = ll.allocated + take.qty,
			updated_at = NOW()
		FROM take
		WHERE ll.id = take.id
		RETURNING take.qty
	`
	var taken int
	err := ex.QueryRow(ctx, query, lineID, qty).Scan(&taken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil // line drained by a concurrent reservation
		}
		return 0, err
	}
	return taken, nil
}

// CommitUsedLine moves qty from allocated to used. Returns false when the
// allocated guard fails; the caller decides whether to clamp.
func (r *lotRepo) CommitUsedLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error) {
	query := `
		UPDATE lot_lines
		SET allocated = allocated - $4, used = used + $4, updated_at = NOW()
		WHERE ` + lineMatch + ` AND allocated >= $4
	`
	tag, err := ex.Exec(ctx, query, lotID, productID, variantID, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseLine moves qty from allocated back to available on cancellation.
// Returns false when the allocated guard fails; the caller decides whether
// to clamp.
func (r *lotRepo) ReleaseLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error) {
	query := `
		UPDATE lot_lines
		SET allocated = allocated - $4, available = available + $4, updated_at = NOW()
		WHERE ` + lineMatch + ` AND allocated >= $4
	`
	tag, err := ex.Exec(ctx, query, lotID, productID, variantID, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClampCommitLine drains whatever allocated quantity remains into used when
// a strict commit found less than expected. Conservation holds because the
// same amount leaves allocated and enters used.
func (r *lotRepo) ClampCommitLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	query := `
		WITH drain AS (
			SELECT id, allocated AS qty FROM lot_lines WHERE ` + lineMatch + ` FOR UPDATE
		)
		UPDATE lot_lines ll
		SET allocated = 0, used = ll.used + drain.qty, updated_at = NOW()
		FROM drain
		WHERE ll.id = drain.id
		RETURNING drain.qty
	`
	var moved int
	err := ex.QueryRow(ctx, query, lotID, productID, variantID).Scan(&moved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("lot line: %w", common.ErrNotFound)
		}
		return 0, err
	}
	return moved, nil
}

// ClampReleaseLine drains the remaining allocated quantity back to available
// when a strict release found less than expected.
func (r *lotRepo) ClampReleaseLine(ctx context.Context, ex Executor, lotID, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	query := `
		WITH drain AS (
			SELECT id, allocated AS qty FROM lot_lines WHERE ` + lineMatch + ` FOR UPDATE
		)
		UPDATE lot_lines ll
		SET allocated = 0, available = ll.available + drain.qty, updated_at = NOW()
		FROM drain
		WHERE ll.id = drain.id
		RETURNING drain.qty
	`
	var moved int
	err := ex.QueryRow(ctx, query, lotID, productID, variantID).Scan(&moved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("lot line: %w", common.ErrNotFound)
		}
		return 0, err
	}
	return moved, nil
}

// RecomputeStatus rewrites the cached status flag from the line quantities
// and the expiry date. Recalled stays recalled; a fully consumed lot reads
// depleted even after its expiry passes.
func (r *lotRepo) RecomputeStatus(ctx context.Context, ex Executor, lotID uuid.UUID, now time.Time) error {
	query := `
		UPDATE lots
		SET status = CASE
			WHEN status = 'recalled' THEN 'recalled'
			WHEN NOT EXISTS (
				SELECT 1 FROM lot_lines ll
				WHERE ll.lot_id = lots.id AND (ll.available > 0 OR ll.allocated > 0)
			) THEN 'depleted'
			WHEN expiry_date IS NOT NULL AND expiry_date < $2 THEN 'expired'
			ELSE 'active'
		END,
		updated_at = NOW()
		WHERE id = $1
	`
	_, err := ex.Exec(ctx, query, lotID, now)
	return err
}

// ExpirePastLots flips every active lot whose expiry date has passed.
func (r *lotRepo) ExpirePastLots(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE lots
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expiry_date IS NOT NULL AND expiry_date < $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindEligibleLines returns the FEFO-ordered allocation candidates for a
// product or variant: active lots, not past their effective expiry (checked
// live, independent of the sweep), with available stock. NULL expiries sort
// last; manufacturing date and lot number break ties so the walk order is
// reproducible for a given snapshot.
func (r *lotRepo) FindEligibleLines(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) ([]*EligibleLine, error) {
	query := `
		SELECT l.id, l.lot_number, ll.id, ll.available,
			COALESCE(ll.expiry_date, l.expiry_date) AS effective_expiry,
			COALESCE(ll.manufacturing_date, l.manufacturing_date) AS effective_mfg
		FROM lots l
		JOIN lot_lines ll ON ll.lot_id = l.id
		WHERE l.status = 'active'
		  AND ll.product_id = $1
		  AND ll.variant_id IS NOT DISTINCT FROM $2
		  AND ll.available > 0
		  AND (COALESCE(ll.expiry_date, l.expiry_date) IS NULL
		       OR COALESCE(ll.expiry_date, l.expiry_date) >= $3)
		ORDER BY COALESCE(ll.expiry_date, l.expiry_date) ASC NULLS LAST,
			COALESCE(ll.manufacturing_date, l.manufacturing_date) ASC,
			l.lot_number ASC
	`
	rows, err := r.db.Query(ctx, query, productID, variantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*EligibleLine
	for rows.Next() {
		line := &EligibleLine{}
		if err := rows.Scan(&line.LotID, &line.LotNumber, &line.LineID, &line.Available,
			&line.ExpiryDate, &line.ManufacturingDate); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// SummarizeStock sums a product or variant across all active, unexpired
// lots. A nil variantID sums the whole product: scalar lines for products
// without variants, every variant line otherwise. Exact NULL matching would
// skip variant lines entirely and report a variant product as empty.
func (r *lotRepo) SummarizeStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, now time.Time) (*models.StockSummary, error) {
	query := `
		SELECT COALESCE(SUM(ll.available), 0), COALESCE(SUM(ll.allocated), 0),
			COALESCE(SUM(ll.total), 0), COUNT(DISTINCT l.id)
		FROM lots l
		JOIN lot_lines ll ON ll.lot_id = l.id
		WHERE l.status = 'active'
		  AND ll.product_id = $1
		  AND ($2::uuid IS NULL OR ll.variant_id = $2)
		  AND (COALESCE(ll.expiry_date, l.expiry_date) IS NULL
		       OR COALESCE(ll.expiry_date, l.expiry_date) >= $3)
	`
	summary := &models.StockSummary{ProductID: productID, VariantID: variantID}
	err := r.db.QueryRow(ctx, query, productID, variantID, now).Scan(
		&summary.TotalAvailable, &summary.TotalAllocated, &summary.Total, &summary.LotCount)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
