package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrNotFound    = errors.New("shop_not_found")
	ErrInvalidCode = errors.New("invalid_shop_code")
)

// Shop is a selling location. Its code becomes part of every document number
// issued for it, so the code is immutable once a sequence references it.
type Shop struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code      string            `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Address   string            `gorm:"type:text" json:"address,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Shop) TableName() string { return "shops" }

// Directory resolves shop codes for document numbering.
type Directory interface {
	CodeOf(ctx context.Context, id snowflake.ID) (string, error)
}

type Repository interface {
	Directory
	Insert(ctx context.Context, shop *Shop) error
	FindByID(ctx context.Context, id snowflake.ID) (*Shop, error)
	FindByCode(ctx context.Context, code string) (*Shop, error)
	List(ctx context.Context) ([]*Shop, error)
}
