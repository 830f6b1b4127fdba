// Package domain contains persistence models for invoicing.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var (
	ErrNotFound        = errors.New("invoice_not_found")
	ErrInvalidStatus   = errors.New("invalid_invoice_status")
	ErrTerminalStatus  = errors.New("invoice_status_terminal")
	ErrConflict        = errors.New("invoice_conflict")
	ErrNoItems         = errors.New("invoice_has_no_items")
	ErrMissingCustomer = errors.New("invoice_missing_customer")
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
	InvoiceStatusVoid          InvoiceStatus = "VOID"
)

// Valid reports whether s is a recognized status value.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusPartiallyPaid, InvoiceStatusOverdue,
		InvoiceStatusCancelled, InvoiceStatusVoid:
		return true
	}
	return false
}

// Terminal statuses permit no further mutation of any kind.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusCancelled || s == InvoiceStatusVoid
}

// AffectsBalance reports whether invoices in this status contribute to a
// customer's account balance. Draft and terminal invoices never do.
func (s InvoiceStatus) AffectsBalance() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// DeductsStock reports whether entering this status triggers stock deduction.
func (s InvoiceStatus) DeductsStock() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusPartiallyPaid:
		return true
	}
	return false
}

// BalanceAffectingStatuses is the status set used by statement queries.
var BalanceAffectingStatuses = []InvoiceStatus{
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusOverdue,
}

// Invoice is a generated commercial document. The levy/VAT configuration is
// snapshotted at creation so later default changes never alter an issued
// document. TotalPaid is the only mutable money accumulator; balance due is
// always derived, never stored.
type Invoice struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNumber  string       `gorm:"type:text;not null;uniqueIndex" json:"invoice_number"`
	SequenceNumber int64        `gorm:"not null" json:"sequence_number"`
	ShopID         snowflake.ID `gorm:"not null;index" json:"shop_id"`
	CustomerID     snowflake.ID `gorm:"not null;index" json:"customer_id"`

	CustomerName    string `gorm:"type:text;not null" json:"customer_name"`
	CustomerAddress string `gorm:"type:text" json:"customer_address,omitempty"`

	InvoiceDate time.Time `gorm:"not null;index" json:"invoice_date"`
	DueDate     time.Time `gorm:"not null" json:"due_date"`

	ApplyPPDALevy      bool            `gorm:"not null;default:false" json:"apply_ppda_levy"`
	PPDALevyPercentage decimal.Decimal `gorm:"type:numeric(6,3);not null;default:0" json:"ppda_levy_percentage"`
	VATPercentage      decimal.Decimal `gorm:"type:numeric(6,3);not null;default:0" json:"vat_percentage"`

	GrossTotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"gross_total_amount"`
	PPDALevyAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"ppda_levy_amount"`
	AmountBeforeVAT  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"amount_before_vat"`
	VATAmount        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"vat_amount"`
	TotalNetAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_net_amount"`
	TotalPaid        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_paid"`

	Status          InvoiceStatus `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	StockDeductedAt *time.Time    `gorm:"" json:"stock_deducted_at,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// BalanceDue is total net minus total paid. It is a derived identity, not a
// column.
func (i Invoice) BalanceDue() decimal.Decimal {
	return i.TotalNetAmount.Sub(i.TotalPaid)
}

// InvoiceItem represents a line on an invoice. The line total is always
// derivable as quantity × rate and is never stored.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	ProductID   *snowflake.ID   `gorm:"index" json:"product_id,omitempty"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	RatePerUnit decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"rate_per_unit"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

func (it InvoiceItem) LineTotal() decimal.Decimal {
	return it.Quantity.Mul(it.RatePerUnit)
}
