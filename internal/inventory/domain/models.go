package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrUnknownBarcode    = errors.New("unknown_barcode")
	ErrInvalidQuantity   = errors.New("invalid_stock_quantity")
	ErrDuplicateMovement = errors.New("duplicate_stock_movement")
)

type MovementDirection string

const (
	MovementIn  MovementDirection = "IN"
	MovementOut MovementDirection = "OUT"
)

// StockLevel is the current on-hand quantity for a barcode at one shop.
type StockLevel struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	Barcode   string          `gorm:"type:text;not null;uniqueIndex:ux_stock_levels_barcode_shop"`
	ShopID    snowflake.ID    `gorm:"not null;uniqueIndex:ux_stock_levels_barcode_shop"`
	Quantity  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (StockLevel) TableName() string { return "stock_levels" }

// StockMovement is one append-only entry in the stock ledger. The unique
// (reference_type, reference_id, barcode, direction) key is what makes
// document-driven deductions idempotent: replaying the same deduction for
// the same document is rejected by the constraint, not by convention.
type StockMovement struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	Barcode         string            `gorm:"type:text;not null;uniqueIndex:ux_stock_movements_reference"`
	ShopID          snowflake.ID      `gorm:"not null;index"`
	Direction       MovementDirection `gorm:"type:text;not null;uniqueIndex:ux_stock_movements_reference"`
	Quantity        decimal.Decimal   `gorm:"type:numeric(14,2);not null"`
	Actor           string            `gorm:"type:text"`
	ReferenceType   string            `gorm:"type:text;not null;uniqueIndex:ux_stock_movements_reference"`
	ReferenceID     snowflake.ID      `gorm:"not null;uniqueIndex:ux_stock_movements_reference"`
	ReferenceNumber string            `gorm:"type:text"`
	Notes           string            `gorm:"type:text"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (StockMovement) TableName() string { return "stock_movements" }

// RemoveStockRequest describes one stock deduction.
type RemoveStockRequest struct {
	Barcode         string
	Quantity        decimal.Decimal
	ShopID          snowflake.ID
	Actor           string
	ReferenceType   string
	ReferenceID     snowflake.ID
	ReferenceNumber string
	Notes           string
}

// AddStockRequest describes one stock receipt.
type AddStockRequest struct {
	Barcode         string
	Quantity        decimal.Decimal
	ShopID          snowflake.ID
	Actor           string
	ReferenceType   string
	ReferenceID     snowflake.ID
	ReferenceNumber string
	Notes           string
}

// Service is the inventory port used by document lifecycles. Mutating
// methods take the caller's transaction so a failed deduction rolls the
// whole document transition back.
type Service interface {
	RemoveStock(ctx context.Context, tx *gorm.DB, req RemoveStockRequest) (decimal.Decimal, error)
	AddStock(ctx context.Context, tx *gorm.DB, req AddStockRequest) (decimal.Decimal, error)

	// ReverseForReference re-adds every OUT movement recorded under the
	// given reference. Used when a document is cancelled or voided.
	ReverseForReference(ctx context.Context, tx *gorm.DB, referenceType string, referenceID snowflake.ID, actor string) error

	StockOf(ctx context.Context, barcode string, shopID snowflake.ID) (decimal.Decimal, error)
}
