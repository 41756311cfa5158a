package models

import (
	"time"

	"github.com/google/uuid"
)

// LotStatus is a derived flag cached on the lot record. The quantity
// columns on the lot lines are the source of truth; status is recomputed
// after every mutation.
type LotStatus string

const (
	LotStatusActive   LotStatus = "active"
	LotStatusExpired  LotStatus = "expired"
	LotStatusRecalled LotStatus = "recalled"
	LotStatusDepleted LotStatus = "depleted"
)

// Lot is a dated receipt of physical stock. Lots are permanent audit
// records and are never deleted.
type Lot struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	LotNumber         string     `json:"lot_number" db:"lot_number"`
	SupplierName      string     `json:"supplier_name" db:"supplier_name"`
	InvoiceRef        *string    `json:"invoice_ref,omitempty" db:"invoice_ref"`
	Notes             *string    `json:"notes,omitempty" db:"notes"`
	ReceivedAt        time.Time  `json:"received_at" db:"received_at"`
	ManufacturingDate time.Time  `json:"manufacturing_date" db:"manufacturing_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	BestBeforeDate    *time.Time `json:"best_before_date,omitempty" db:"best_before_date"`
	Status            LotStatus  `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`

	Lines []*LotLine `json:"lines,omitempty" db:"-"`
}

// IsExpired reports whether the lot is past its expiry date. Lots with no
// expiry date never expire.
func (l *Lot) IsExpired(now time.Time) bool {
	if l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.Before(now)
}

// WillExpireWithin reports whether the lot expires inside the given horizon.
func (l *Lot) WillExpireWithin(now time.Time, horizon time.Duration) bool {
	if l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.Before(now.Add(horizon))
}

// DeriveStatus computes the status a lot should carry given its lines.
// Recalled is sticky; depleted wins over expired so a consumed lot is not
// resurrected by a date change.
func (l *Lot) DeriveStatus(now time.Time) LotStatus {
	if l.Status == LotStatusRecalled {
		return LotStatusRecalled
	}
	depleted := true
	for _, line := range l.Lines {
		if line.Available > 0 || line.Allocated > 0 {
			depleted = false
			break
		}
	}
	if depleted && len(l.Lines) > 0 {
		return LotStatusDepleted
	}
	if l.IsExpired(now) {
		return LotStatusExpired
	}
	return LotStatusActive
}

// LotLine tracks quantity for one product, or one variant of a product,
// inside a lot. VariantID is nil for products sold without variants.
// The shelf-life date fields, when set, override the lot-level defaults.
type LotLine struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	LotID     uuid.UUID  `json:"lot_id" db:"lot_id"`
	ProductID uuid.UUID  `json:"product_id" db:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty" db:"variant_id"`

	Total     int `json:"total" db:"total"`
	Available int `json:"available" db:"available"`
	Allocated int `json:"allocated" db:"allocated"`
	Used      int `json:"used" db:"used"`

	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty" db:"manufacturing_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	BestBeforeDate    *time.Time `json:"best_before_date,omitempty" db:"best_before_date"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Triple returns the line's quantity state as a value type.
func (ll *LotLine) Triple() QuantityTriple {
	return QuantityTriple{
		Total:     ll.Total,
		Available: ll.Available,
		Allocated: ll.Allocated,
		Used:      ll.Used,
	}
}

// EffectiveExpiry resolves the line-level override against the lot default.
func (ll *LotLine) EffectiveExpiry(lot *Lot) *time.Time {
	if ll.ExpiryDate != nil {
		return ll.ExpiryDate
	}
	return lot.ExpiryDate
}

// EffectiveManufacturing resolves the line-level override against the lot
// default.
func (ll *LotLine) EffectiveManufacturing(lot *Lot) time.Time {
	if ll.ManufacturingDate != nil {
		return *ll.ManufacturingDate
	}
	return lot.ManufacturingDate
}
