package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrNotFound    = errors.New("customer_not_found")
	ErrInvalidCode = errors.New("invalid_customer_code")
)

// Customer is an account that documents are issued to. Like shops, the code
// is baked into document numbers and must not change once referenced.
type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code      string            `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Email     string            `gorm:"type:text" json:"email,omitempty"`
	Address   string            `gorm:"type:text" json:"address,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// Directory resolves customer codes for document numbering.
type Directory interface {
	CodeOf(ctx context.Context, id snowflake.ID) (string, error)
}

type Repository interface {
	Directory
	Insert(ctx context.Context, customer *Customer) error
	FindByID(ctx context.Context, id snowflake.ID) (*Customer, error)
	FindByCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context) ([]*Customer, error)
}
