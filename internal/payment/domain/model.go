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
	ErrNotFound        = errors.New("payment_not_found")
	ErrInvalidAmount   = errors.New("invalid_payment_amount")
	ErrInvoiceTerminal = errors.New("invoice_not_payable")
	ErrOverpayment     = errors.New("payment_exceeds_balance")
)

// Payment is one receipt applied against an invoice. Payments are never
// edited; the only way to undo one is Reverse, which symmetrically restores
// the invoice's paid total.
type Payment struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID      `gorm:"not null;index" json:"invoice_id"`
	CustomerID  snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	AmountPaid  decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"amount_paid"`
	PaymentDate time.Time         `gorm:"not null;index" json:"payment_date"`
	Method      string            `gorm:"type:text" json:"method,omitempty"`
	Reference   string            `gorm:"type:text" json:"reference,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// RecordRequest describes one payment to apply.
type RecordRequest struct {
	InvoiceID   snowflake.ID    `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      string          `json:"method,omitempty"`
	Reference   string          `json:"reference,omitempty"`

	// AllowOverpayment permits the paid total to exceed the invoice's net
	// amount by more than the tolerance band, as an explicit business
	// exception. Without it such a payment is refused.
	AllowOverpayment bool `json:"allow_overpayment,omitempty"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Payment, error)
	Reverse(ctx context.Context, paymentID snowflake.ID, actor string) error
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Payment, error)
}
