package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/tradebooks/internal/payment/domain"
	statementdomain "github.com/smallbiznis/tradebooks/internal/statement/domain"
	"github.com/smallbiznis/tradebooks/internal/tax"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Customers customerdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	customers customerdomain.Repository
}

func NewService(p Params) statementdomain.Builder {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("statement.service"),
		customers: p.Customers,
	}
}

// Build computes the customer's statement for [start, end], both inclusive.
// Dates are treated as calendar dates; when an invoice and a payment fall on
// the same date the invoice is ordered first.
func (s *Service) Build(ctx context.Context, customerID snowflake.ID, start, end time.Time) (*statementdomain.Statement, error) {
	if start.After(end) {
		return nil, statementdomain.ErrInvalidPeriod
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}

	var (
		opening        decimal.Decimal
		periodInvoices []invoicedomain.Invoice
		periodPayments []paymentdomain.Payment
	)

	// Documents carry a time-of-day but the period is a pair of calendar
	// dates, so the bounds are widened to whole days before querying.
	periodStart := dateOnly(start)
	periodEnd := dateOnly(end).AddDate(0, 0, 1)

	// One read transaction so the two streams see the same snapshot and the
	// merge cannot be torn by a concurrent write.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior []invoicedomain.Invoice
		if err := tx.WithContext(ctx).
			Where("customer_id = ? AND invoice_date < ? AND status IN ?",
				customerID, periodStart, invoicedomain.BalanceAffectingStatuses).
			Find(&prior).Error; err != nil {
			return err
		}
		opening = decimal.Zero
		for _, invoice := range prior {
			opening = opening.Add(invoice.BalanceDue())
		}
		opening = opening.Round(2)

		if err := tx.WithContext(ctx).
			Where("customer_id = ? AND invoice_date >= ? AND invoice_date < ? AND status IN ?",
				customerID, periodStart, periodEnd, invoicedomain.BalanceAffectingStatuses).
			Order("invoice_date, invoice_number").
			Find(&periodInvoices).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).
			Where("customer_id = ? AND payment_date >= ? AND payment_date < ?",
				customerID, periodStart, periodEnd).
			Order("payment_date, id").
			Find(&periodPayments).Error
	})
	if err != nil {
		return nil, err
	}

	entries := make([]statementdomain.StatementEntry, 0, len(periodInvoices)+len(periodPayments))
	for _, invoice := range periodInvoices {
		entries = append(entries, statementdomain.StatementEntry{
			Date:        invoice.InvoiceDate,
			Kind:        statementdomain.EntryKindInvoice,
			Reference:   invoice.InvoiceNumber,
			Description: "Invoice " + invoice.InvoiceNumber,
			Debit:       invoice.TotalNetAmount,
			Credit:      decimal.Zero,
		})
	}
	for _, payment := range periodPayments {
		entries = append(entries, statementdomain.StatementEntry{
			Date:        payment.PaymentDate,
			Kind:        statementdomain.EntryKindPayment,
			Reference:   payment.Reference,
			Description: "Payment received",
			Debit:       decimal.Zero,
			Credit:      payment.AmountPaid,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dateOnly(entries[i].Date), dateOnly(entries[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return kindRank(entries[i].Kind) < kindRank(entries[j].Kind)
	})

	running := opening
	totalDebits := decimal.Zero
	totalCredits := decimal.Zero
	for i := range entries {
		running = running.Add(entries[i].Debit).Sub(entries[i].Credit).Round(2)
		entries[i].RunningBalance = running
		totalDebits = totalDebits.Add(entries[i].Debit)
		totalCredits = totalCredits.Add(entries[i].Credit)
	}

	expected := opening.Add(totalDebits).Sub(totalCredits).Round(2)
	if running.Sub(expected).Abs().GreaterThan(tax.Tolerance) {
		s.log.Error("statement failed reconciliation",
			zap.String("customer_id", customerID.String()),
			zap.String("closing", running.StringFixed(2)),
			zap.String("expected", expected.StringFixed(2)),
		)
		return nil, statementdomain.ErrReconciliation
	}

	return &statementdomain.Statement{
		CustomerID:     customerID,
		CustomerName:   customer.Name,
		StartDate:      start,
		EndDate:        end,
		OpeningBalance: opening,
		Entries:        entries,
		TotalDebits:    totalDebits.Round(2),
		TotalCredits:   totalCredits.Round(2),
		ClosingBalance: running,
	}, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func kindRank(kind statementdomain.EntryKind) int {
	// Invoices take a nominal earlier time-of-day than payments on the
	// same date.
	if kind == statementdomain.EntryKindInvoice {
		return 0
	}
	return 1
}
