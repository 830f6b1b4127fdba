package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StockReferenceType keys invoice-driven stock movements in the inventory
// ledger.
const StockReferenceType = "invoice"

// Transition moves an invoice to newStatus. Entering SENT, PAID or
// PARTIALLY_PAID deducts stock for stock-tracked lines exactly once per
// invoice; entering CANCELLED or VOID reverses a prior deduction. Any
// inventory failure aborts the whole transition.
func (s *Service) Transition(ctx context.Context, id snowflake.ID, newStatus invoicedomain.InvoiceStatus, actor string) error {
	if !newStatus.Valid() {
		return invoicedomain.ErrInvalidStatus
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status.Terminal() {
			return invoicedomain.ErrTerminalStatus
		}
		if invoice.Status == newStatus {
			// A concurrent caller got here first. Observably the same as
			// the row not matching at all.
			return invoicedomain.ErrConflict
		}

		now := s.clock.Now()
		result := tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET status = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			newStatus,
			now,
			invoice.ID,
			invoice.Status,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrConflict
		}

		if newStatus.DeductsStock() && invoice.StockDeductedAt == nil {
			if err := s.deductStock(ctx, tx, invoice, actor); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Exec(
				`UPDATE invoices SET stock_deducted_at = ? WHERE id = ?`,
				now,
				invoice.ID,
			).Error; err != nil {
				return err
			}
		}

		if newStatus.Terminal() && invoice.StockDeductedAt != nil {
			if err := s.inventory.ReverseForReference(ctx, tx, StockReferenceType, invoice.ID, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("status", string(newStatus)),
		zap.String("actor", actor),
	)
	return nil
}

// deductStock removes stock for every line whose product is stock-tracked.
// Quantities are aggregated per barcode first, so an invoice with several
// lines for one product records a single ledger movement and the reference
// uniqueness backing StockDeductedAt holds.
func (s *Service) deductStock(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, actor string) error {
	quantities := make(map[string]decimal.Decimal)
	barcodes := make([]string, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		if item.ProductID == nil {
			continue
		}
		product, err := s.products.FindByID(ctx, *item.ProductID)
		if err != nil {
			return err
		}
		if product == nil || !product.TrackStock {
			continue
		}
		if _, ok := quantities[product.Barcode]; !ok {
			barcodes = append(barcodes, product.Barcode)
		}
		quantities[product.Barcode] = quantities[product.Barcode].Add(item.Quantity)
	}

	for _, barcode := range barcodes {
		if _, err := s.inventory.RemoveStock(ctx, tx, inventorydomain.RemoveStockRequest{
			Barcode:         barcode,
			Quantity:        quantities[barcode],
			ShopID:          invoice.ShopID,
			Actor:           actor,
			ReferenceType:   StockReferenceType,
			ReferenceID:     invoice.ID,
			ReferenceNumber: invoice.InvoiceNumber,
		}); err != nil {
			return err
		}
	}
	return nil
}
