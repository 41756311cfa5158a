package models

import "github.com/google/uuid"

// DemandItem is one line of an order to allocate. Quantity is the full
// demanded amount; the allocator may satisfy it from several lots.
type DemandItem struct {
	ProductID     uuid.UUID    `json:"product_id"`
	VariantID     *uuid.UUID   `json:"variant_id,omitempty"`
	Quantity      int          `json:"quantity"`
	Kind          LineItemKind `json:"kind,omitempty"`
	ParentComboID *uuid.UUID   `json:"parent_combo_id,omitempty"`
}

// Allocation records quantity reserved from one lot for one demand item.
type Allocation struct {
	LotID         uuid.UUID  `json:"lot_id"`
	LotNumber     string     `json:"lot_number"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	ProductID     uuid.UUID  `json:"product_id"`
	VariantID     *uuid.UUID `json:"variant_id,omitempty"`
	Quantity      int        `json:"quantity"`
}

// Shortfall reports a demand item the eligible lots could not fully cover.
// Partial reservations made before the supply ran out are kept; the order
// service owns the accept-or-cancel decision.
type Shortfall struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Requested int        `json:"requested"`
	Reserved  int        `json:"reserved"`
	Shortfall int        `json:"shortfall"`
}

// AllocationResult is the allocator's answer for a whole order.
type AllocationResult struct {
	OrderID        uuid.UUID    `json:"order_id"`
	FullyAllocated bool         `json:"fully_allocated"`
	Allocations    []Allocation `json:"allocations"`
	Shortfalls     []Shortfall  `json:"shortfalls,omitempty"`
}

// LifecycleResult is returned by the delivery and cancellation transitions.
// AlreadyProcessed lists reservations found in a terminal state; repeating a
// transition is reported, never re-applied.
type LifecycleResult struct {
	OrderID          uuid.UUID   `json:"order_id"`
	Success          bool        `json:"success"`
	UpdatedLots      []uuid.UUID `json:"updated_lots"`
	AlreadyProcessed []uuid.UUID `json:"already_processed,omitempty"`
	Errors           []string    `json:"errors,omitempty"`
}

// StockSummary aggregates a product or variant across all active lots.
type StockSummary struct {
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	TotalAvailable int        `json:"total_available"`
	TotalAllocated int        `json:"total_allocated"`
	Total          int        `json:"total"`
	LotCount       int        `json:"lot_count"`
}

// AvailabilityCheck is the pre-allocation availability answer.
type AvailabilityCheck struct {
	Available bool `json:"available"`
	Shortfall int  `json:"shortfall"`
}
