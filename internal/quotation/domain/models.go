package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	"gorm.io/datatypes"
)

var (
	ErrNotFound         = errors.New("quotation_not_found")
	ErrAlreadyConverted = errors.New("quotation_already_converted")
)

type QuotationStatus string

const (
	QuotationStatusDraft     QuotationStatus = "DRAFT"
	QuotationStatusSent      QuotationStatus = "SENT"
	QuotationStatusAccepted  QuotationStatus = "ACCEPTED"
	QuotationStatusConverted QuotationStatus = "CONVERTED"
)

// Quotation is a priced offer. It shares the invoice's numbering and tax
// derivation but carries no payments and triggers no stock movement.
type Quotation struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	QuotationNumber string       `gorm:"type:text;not null;uniqueIndex" json:"quotation_number"`
	SequenceNumber  int64        `gorm:"not null" json:"sequence_number"`
	ShopID          snowflake.ID `gorm:"not null;index" json:"shop_id"`
	CustomerID      snowflake.ID `gorm:"not null;index" json:"customer_id"`

	CustomerName    string `gorm:"type:text;not null" json:"customer_name"`
	CustomerAddress string `gorm:"type:text" json:"customer_address,omitempty"`

	QuotationDate time.Time `gorm:"not null;index" json:"quotation_date"`
	ValidUntil    time.Time `gorm:"not null" json:"valid_until"`

	ApplyPPDALevy      bool            `gorm:"not null;default:false" json:"apply_ppda_levy"`
	PPDALevyPercentage decimal.Decimal `gorm:"type:numeric(6,3);not null;default:0" json:"ppda_levy_percentage"`
	VATPercentage      decimal.Decimal `gorm:"type:numeric(6,3);not null;default:0" json:"vat_percentage"`

	GrossTotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"gross_total_amount"`
	PPDALevyAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"ppda_levy_amount"`
	AmountBeforeVAT  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"amount_before_vat"`
	VATAmount        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"vat_amount"`
	TotalNetAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_net_amount"`

	Status    QuotationStatus `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	InvoiceID *snowflake.ID   `gorm:"index" json:"invoice_id,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID" json:"items,omitempty"`
}

func (Quotation) TableName() string { return "quotations" }

type QuotationItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	QuotationID snowflake.ID    `gorm:"not null;index" json:"quotation_id"`
	ProductID   *snowflake.ID   `gorm:"index" json:"product_id,omitempty"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	RatePerUnit decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"rate_per_unit"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (QuotationItem) TableName() string { return "quotation_items" }

// CreateQuotationRequest mirrors the invoice creation request; the same
// resolution rules apply.
type CreateQuotationRequest struct {
	ShopID          snowflake.ID `json:"shop_id"`
	CustomerID      snowflake.ID `json:"customer_id"`
	CustomerName    string       `json:"customer_name,omitempty"`
	CustomerAddress string       `json:"customer_address,omitempty"`

	QuotationDate time.Time `json:"quotation_date"`
	ValidUntil    time.Time `json:"valid_until"`

	ApplyPPDALevy      *bool            `json:"apply_ppda_levy,omitempty"`
	PPDALevyPercentage *decimal.Decimal `json:"ppda_levy_percentage,omitempty"`
	VATPercentage      *decimal.Decimal `json:"vat_percentage,omitempty"`

	Items []invoicedomain.CreateItem `json:"items"`
}

type Service interface {
	Create(ctx context.Context, req CreateQuotationRequest) (*Quotation, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Quotation, error)
	List(ctx context.Context, customerID *snowflake.ID) ([]Quotation, error)

	// ConvertToInvoice issues an invoice carrying the quotation's lines and
	// snapshotted tax settings, then marks the quotation CONVERTED.
	ConvertToInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error)
}
