package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPeriod  = errors.New("invalid_statement_period")
	ErrReconciliation = errors.New("statement_reconciliation_failed")
)

type EntryKind string

const (
	EntryKindInvoice EntryKind = "INVOICE"
	EntryKindPayment EntryKind = "PAYMENT"
)

// StatementEntry is one debit or credit row with the running balance after
// applying it. Entries are derived, never persisted.
type StatementEntry struct {
	Date           time.Time       `json:"date"`
	Kind           EntryKind       `json:"kind"`
	Reference      string          `json:"reference"`
	Description    string          `json:"description,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Statement is a customer's account over a date range: opening balance,
// chronologically merged invoice debits and payment credits, and the
// resulting closing balance.
type Statement struct {
	CustomerID     snowflake.ID     `json:"customer_id"`
	CustomerName   string           `json:"customer_name"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        time.Time        `json:"end_date"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	Entries        []StatementEntry `json:"entries"`
	TotalDebits    decimal.Decimal  `json:"total_debits"`
	TotalCredits   decimal.Decimal  `json:"total_credits"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
}

type Builder interface {
	Build(ctx context.Context, customerID snowflake.ID, start, end time.Time) (*Statement, error)
}
