// Package migration creates all core tables on startup so the application
// is usable out of the box for local and self-hosted environments.
package migration

import (
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/tradebooks/internal/payment/domain"
	productdomain "github.com/smallbiznis/tradebooks/internal/product/domain"
	quotationdomain "github.com/smallbiznis/tradebooks/internal/quotation/domain"
	sequencedomain "github.com/smallbiznis/tradebooks/internal/sequence/domain"
	shopdomain "github.com/smallbiznis/tradebooks/internal/shop/domain"
	"gorm.io/gorm"
)

// Models lists every persisted entity in migration order.
func Models() []any {
	return []any{
		&shopdomain.Shop{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&sequencedomain.SequenceCounter{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&quotationdomain.Quotation{},
		&quotationdomain.QuotationItem{},
		&paymentdomain.Payment{},
		&inventorydomain.StockLevel{},
		&inventorydomain.StockMovement{},
	}
}

func Run(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}
