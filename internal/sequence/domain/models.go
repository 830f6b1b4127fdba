package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebooks/internal/sequence/format"
	"gorm.io/gorm"
)

var (
	// ErrConflict is a serialization failure on the counter row. Safe to
	// retry; the allocator already retries a bounded number of times.
	ErrConflict = errors.New("sequence_conflict")
)

// SequenceCounter holds the last issued sequence number for one
// (shop, customer) pair. Created lazily on first allocation, incremented
// atomically afterwards, never deleted while documents reference its output.
type SequenceCounter struct {
	ShopID             snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	CustomerID         snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	LastSequenceNumber int64        `gorm:"not null;default:0"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }

// Allocation is one issued sequence value with its formatted number.
type Allocation struct {
	Sequence int64
	Number   string
}

// Allocator issues strictly increasing, never-reused sequence numbers per
// (shop, customer) pair and formats them into document numbers.
type Allocator interface {
	// Allocate runs in its own transaction.
	Allocate(ctx context.Context, shopID, customerID snowflake.ID, f format.NumberFormat) (Allocation, error)

	// AllocateTx participates in the caller's transaction so a document
	// insert and its number issue commit or roll back together.
	AllocateTx(ctx context.Context, tx *gorm.DB, shopID, customerID snowflake.ID, f format.NumberFormat) (Allocation, error)

	// Preview returns what the next number would be without reserving it.
	// Another allocation can race ahead of any preview.
	Preview(ctx context.Context, shopID, customerID snowflake.ID, f format.NumberFormat) (Allocation, error)
}
