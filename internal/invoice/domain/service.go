package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateItem is one requested invoice or quotation line.
type CreateItem struct {
	ProductID   *snowflake.ID   `json:"product_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit"`
}

// CreateInvoiceRequest describes a document-creation request. Levy/VAT
// overrides are optional; absent values fall back to configured defaults.
// CustomerName/CustomerAddress override the directory snapshot when set.
type CreateInvoiceRequest struct {
	ShopID          snowflake.ID `json:"shop_id"`
	CustomerID      snowflake.ID `json:"customer_id"`
	CustomerName    string       `json:"customer_name,omitempty"`
	CustomerAddress string       `json:"customer_address,omitempty"`

	InvoiceDate time.Time `json:"invoice_date"`
	DueDate     time.Time `json:"due_date"`

	ApplyPPDALevy      *bool            `json:"apply_ppda_levy,omitempty"`
	PPDALevyPercentage *decimal.Decimal `json:"ppda_levy_percentage,omitempty"`
	VATPercentage      *decimal.Decimal `json:"vat_percentage,omitempty"`

	Items []CreateItem `json:"items"`
}

type ListInvoiceRequest struct {
	CustomerID *snowflake.ID
	ShopID     *snowflake.ID
	Status     *InvoiceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)

	// CreateTx creates an invoice inside the caller's transaction, for
	// callers that must couple the creation with their own writes.
	CreateTx(ctx context.Context, tx *gorm.DB, req CreateInvoiceRequest) (*Invoice, error)

	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)

	// UpdateItems replaces a draft invoice's lines and recomputes its totals
	// through the same tax derivation used at creation.
	UpdateItems(ctx context.Context, id snowflake.ID, items []CreateItem) (*Invoice, error)

	// Transition applies a status change, triggering stock deduction or
	// reversal where the target status requires it.
	Transition(ctx context.Context, id snowflake.ID, newStatus InvoiceStatus, actor string) error

	// MarkOverdue moves sent and partially paid invoices past their due date
	// into OVERDUE. Returns the number of invoices affected.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)

	// PreviewNumber returns the next invoice number for the pair without
	// reserving it.
	PreviewNumber(ctx context.Context, shopID, customerID snowflake.ID) (string, error)
}
