package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebooks/internal/clock"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/tradebooks/internal/payment/domain"
	"github.com/smallbiznis/tradebooks/internal/tax"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Record inserts the payment and applies it to the invoice's paid total in
// one atomic unit. A crash between the two leaves neither visible.
func (s *Service) Record(ctx context.Context, req paymentdomain.RecordRequest) (*paymentdomain.Payment, error) {
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, paymentdomain.ErrInvalidAmount
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.clock.Now()
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	var created paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.lockInvoice(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status.Terminal() {
			return paymentdomain.ErrInvoiceTerminal
		}

		newPaid := invoice.TotalPaid.Add(req.Amount)
		if newPaid.Sub(invoice.TotalNetAmount).GreaterThan(tax.Tolerance) && !req.AllowOverpayment {
			return paymentdomain.ErrOverpayment
		}

		now := s.clock.Now()
		created = paymentdomain.Payment{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			CustomerID:  invoice.CustomerID,
			AmountPaid:  req.Amount,
			PaymentDate: paymentDate,
			Method:      strings.TrimSpace(req.Method),
			Reference:   reference,
			Metadata:    datatypes.JSONMap{},
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
			return err
		}

		return s.applyPaidTotal(ctx, tx, invoice, newPaid, statusAfterPayment(invoice.TotalNetAmount, newPaid))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.String("payment_id", created.ID.String()),
		zap.String("invoice_id", created.InvoiceID.String()),
		zap.String("amount", created.AmountPaid.StringFixed(2)),
	)
	return &created, nil
}

// Reverse deletes the payment and decrements the invoice's paid total by the
// exact recorded amount, restoring the pre-payment value with no rounding
// drift.
func (s *Service) Reverse(ctx context.Context, paymentID snowflake.ID, actor string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment paymentdomain.Payment
		result := tx.WithContext(ctx).Raw(
			`SELECT * FROM payments WHERE id = ?`, paymentID,
		).Scan(&payment)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 || payment.ID == 0 {
			return paymentdomain.ErrNotFound
		}

		invoice, err := s.lockInvoice(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status.Terminal() {
			return paymentdomain.ErrInvoiceTerminal
		}

		if err := tx.WithContext(ctx).Delete(&paymentdomain.Payment{}, "id = ?", payment.ID).Error; err != nil {
			return err
		}

		newPaid := invoice.TotalPaid.Sub(payment.AmountPaid)
		return s.applyPaidTotal(ctx, tx, invoice, newPaid, statusAfterReversal(invoice.TotalNetAmount, newPaid))
	})
	if err != nil {
		return err
	}

	s.log.Info("payment reversed",
		zap.String("payment_id", paymentID.String()),
		zap.String("actor", actor),
	)
	return nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date, id").
		Find(&payments).Error
	return payments, err
}

func statusAfterPayment(totalNet, totalPaid decimal.Decimal) invoicedomain.InvoiceStatus {
	if totalNet.Sub(totalPaid).LessThanOrEqual(tax.Tolerance) {
		return invoicedomain.InvoiceStatusPaid
	}
	return invoicedomain.InvoiceStatusPartiallyPaid
}

// statusAfterReversal falls back to SENT when no payments remain. The true
// prior status is not reconstructible without a history log; SENT is the
// documented approximation.
func statusAfterReversal(totalNet, totalPaid decimal.Decimal) invoicedomain.InvoiceStatus {
	if totalNet.Sub(totalPaid).LessThanOrEqual(tax.Tolerance) {
		return invoicedomain.InvoiceStatusPaid
	}
	if totalPaid.IsPositive() {
		return invoicedomain.InvoiceStatusPartiallyPaid
	}
	return invoicedomain.InvoiceStatusSent
}

func (s *Service) applyPaidTotal(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, newPaid decimal.Decimal, newStatus invoicedomain.InvoiceStatus) error {
	result := tx.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET total_paid = ?, status = ?, updated_at = ?
		 WHERE id = ? AND total_paid = ?`,
		newPaid,
		newStatus,
		s.clock.Now(),
		invoice.ID,
		invoice.TotalPaid,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return invoicedomain.ErrConflict
	}
	return nil
}

func (s *Service) lockInvoice(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	query := `SELECT * FROM invoices WHERE id = ?`
	if tx.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var invoice invoicedomain.Invoice
	result := tx.WithContext(ctx).Raw(query, id).Scan(&invoice)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 || invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}
