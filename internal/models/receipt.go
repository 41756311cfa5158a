package models

import (
	"time"

	"github.com/google/uuid"
)

// StockReceipt describes a single incoming delivery of one product or
// variant. The compatibility matcher merges it into an existing lot when
// supplier and shelf-life dates line up, otherwise it opens a new lot.
type StockReceipt struct {
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	Quantity          int        `json:"quantity"`
	SupplierName      string     `json:"supplier_name"`
	InvoiceRef        *string    `json:"invoice_ref,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	ManufacturingDate time.Time  `json:"manufacturing_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	BestBeforeDate    *time.Time `json:"best_before_date,omitempty"`
}

// BulkReceipt groups many receipt lines under a single intake event. All
// lines land in one new lot so each upload leaves exactly one audit record.
type BulkReceipt struct {
	GroupID           *string           `json:"group_id,omitempty"`
	SupplierName      string            `json:"supplier_name"`
	InvoiceRef        *string           `json:"invoice_ref,omitempty"`
	Notes             *string           `json:"notes,omitempty"`
	ManufacturingDate time.Time         `json:"manufacturing_date"`
	ExpiryDate        *time.Time        `json:"expiry_date,omitempty"`
	BestBeforeDate    *time.Time        `json:"best_before_date,omitempty"`
	Lines             []BulkReceiptLine `json:"lines"`
}

// BulkReceiptLine is one product/variant entry of a bulk intake. Lines may
// override the batch-level shelf-life dates.
type BulkReceiptLine struct {
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	Quantity          int        `json:"quantity"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	BestBeforeDate    *time.Time `json:"best_before_date,omitempty"`
}

// ReceiptResult reports where a single receipt landed.
type ReceiptResult struct {
	LotID     uuid.UUID `json:"lot_id"`
	LotNumber string    `json:"lot_number"`
	Merged    bool      `json:"merged"`
}

// BulkReceiptResult reports the lot created for a bulk intake.
type BulkReceiptResult struct {
	GroupID   string    `json:"group_id"`
	LotID     uuid.UUID `json:"lot_id"`
	LotNumber string    `json:"lot_number"`
	LineCount int       `json:"line_count"`
	Skipped   int       `json:"skipped"`
}
