package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the per-reservation lifecycle state. Allocated is the
// only non-terminal state; Delivered and Cancelled are terminal.
type ReservationStatus string

const (
	ReservationAllocated ReservationStatus = "allocated"
	ReservationDelivered ReservationStatus = "delivered"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Terminal reports whether no further transition is legal.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationDelivered || s == ReservationCancelled
}

// LineItemKind distinguishes directly purchased items from items that entered
// the order as components of a combo pack. Both shapes carry the same
// product/variant/quantity contract to the ledger.
type LineItemKind string

const (
	LineItemRegular        LineItemKind = "regular"
	LineItemComboComponent LineItemKind = "combo_component"
)

// Reservation binds quantities of one lot to one order, pending delivery or
// cancellation. An order split across several lots holds one reservation per
// lot.
type Reservation struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	LotID       uuid.UUID         `json:"lot_id" db:"lot_id"`
	OrderID     uuid.UUID         `json:"order_id" db:"order_id"`
	Status      ReservationStatus `json:"status" db:"status"`
	ReservedAt  time.Time         `json:"reserved_at" db:"reserved_at"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty" db:"delivered_at"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`

	Items []*ReservationItem `json:"items,omitempty" db:"-"`
}

// ReservationItem is one (product, variant, quantity) entry under a
// reservation. ParentComboID is set only for combo components.
type ReservationItem struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	ReservationID uuid.UUID    `json:"reservation_id" db:"reservation_id"`
	ProductID     uuid.UUID    `json:"product_id" db:"product_id"`
	VariantID     *uuid.UUID   `json:"variant_id,omitempty" db:"variant_id"`
	Quantity      int          `json:"quantity" db:"quantity"`
	Kind          LineItemKind `json:"kind" db:"kind"`
	ParentComboID *uuid.UUID   `json:"parent_combo_id,omitempty" db:"parent_combo_id"`
}
