package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var (
	ErrNotFound       = errors.New("product_not_found")
	ErrInvalidBarcode = errors.New("invalid_barcode")
)

// Product is a stockable or service item that can appear on invoice and
// quotation lines. Only products with TrackStock set participate in stock
// deduction.
type Product struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Barcode     string            `gorm:"type:text;not null;uniqueIndex" json:"barcode"`
	Name        string            `gorm:"type:text;not null" json:"name"`
	Unit        string            `gorm:"type:text" json:"unit,omitempty"`
	DefaultRate decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"default_rate"`
	TrackStock  bool              `gorm:"not null;default:false" json:"track_stock"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

type Repository interface {
	Insert(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id snowflake.ID) (*Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
}
