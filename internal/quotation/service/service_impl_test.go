package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebooks/internal/clock"
	"github.com/smallbiznis/tradebooks/internal/config"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	customerrepo "github.com/smallbiznis/tradebooks/internal/customer/repository"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	inventoryservice "github.com/smallbiznis/tradebooks/internal/inventory/service"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/tradebooks/internal/invoice/service"
	productdomain "github.com/smallbiznis/tradebooks/internal/product/domain"
	productrepo "github.com/smallbiznis/tradebooks/internal/product/repository"
	quotationdomain "github.com/smallbiznis/tradebooks/internal/quotation/domain"
	sequencedomain "github.com/smallbiznis/tradebooks/internal/sequence/domain"
	sequenceservice "github.com/smallbiznis/tradebooks/internal/sequence/service"
	shopdomain "github.com/smallbiznis/tradebooks/internal/shop/domain"
	shoprepo "github.com/smallbiznis/tradebooks/internal/shop/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fixture struct {
	db  *gorm.DB
	svc quotationdomain.Service

	shopID     snowflake.ID
	customerID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&shopdomain.Shop{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&sequencedomain.SequenceCounter{},
		&inventorydomain.StockLevel{},
		&inventorydomain.StockMovement{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&quotationdomain.Quotation{},
		&quotationdomain.QuotationItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		Tax: config.TaxConfig{
			ApplyPPDALevy:      true,
			PPDALevyPercentage: "1.0",
			VATPercentage:      "16.5",
		},
		Number: config.NumberConfig{
			InvoicePrefix:   "I-",
			QuotationPrefix: "Q-",
			Separator:       "-",
			SequenceWidth:   3,
		},
	}
	fake := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	shops := shoprepo.Provide(db)
	customers := customerrepo.Provide(db)
	products := productrepo.Provide(db)

	allocator := sequenceservice.NewService(sequenceservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		Shops:     shops,
		Customers: customers,
	})
	inventory := inventoryservice.NewService(inventoryservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	invoices := invoiceservice.NewService(invoiceservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Cfg:       cfg,
		Clock:     fake,
		Allocator: allocator,
		Customers: customers,
		Products:  products,
		Inventory: inventory,
	})
	svc := NewService(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Cfg:        cfg,
		Clock:      fake,
		Allocator:  allocator,
		Customers:  customers,
		InvoiceSvc: invoices,
	})

	ctx := context.Background()
	f := &fixture{db: db, svc: svc}

	f.shopID = node.Generate()
	require.NoError(t, shops.Insert(ctx, &shopdomain.Shop{ID: f.shopID, Code: "MAIN", Name: "Main"}))

	f.customerID = node.Generate()
	require.NoError(t, customers.Insert(ctx, &customerdomain.Customer{
		ID:   f.customerID,
		Code: "CUST001",
		Name: "Chimwemwe Traders",
	}))

	return f
}

func TestCreateQuotation(t *testing.T) {
	f := newFixture(t)

	quotation, err := f.svc.Create(context.Background(), quotationdomain.CreateQuotationRequest{
		ShopID:     f.shopID,
		CustomerID: f.customerID,
		Items: []invoicedomain.CreateItem{
			{Description: "Bags of cement", Quantity: d("2"), RatePerUnit: d("100")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Q-MAIN/CUST001-001", quotation.QuotationNumber)
	assert.Equal(t, quotationdomain.QuotationStatusDraft, quotation.Status)
	assert.True(t, quotation.TotalNetAmount.Equal(d("235.33")), "net: %s", quotation.TotalNetAmount)
	assert.Equal(t, "Chimwemwe Traders", quotation.CustomerName)
}

func TestConvertQuotationCarriesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	noLevy := false
	quotation, err := f.svc.Create(ctx, quotationdomain.CreateQuotationRequest{
		ShopID:        f.shopID,
		CustomerID:    f.customerID,
		ApplyPPDALevy: &noLevy,
		Items: []invoicedomain.CreateItem{
			{Quantity: d("1"), RatePerUnit: d("100")},
		},
	})
	require.NoError(t, err)
	require.True(t, quotation.PPDALevyAmount.IsZero())

	invoice, err := f.svc.ConvertToInvoice(ctx, quotation.ID)
	require.NoError(t, err)

	// The invoice inherits the quotation's no-levy choice, not the current
	// defaults, so both documents carry identical totals.
	assert.True(t, invoice.PPDALevyAmount.IsZero())
	assert.True(t, invoice.TotalNetAmount.Equal(quotation.TotalNetAmount))

	reloaded, err := f.svc.GetByID(ctx, quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, quotationdomain.QuotationStatusConverted, reloaded.Status)
	require.NotNil(t, reloaded.InvoiceID)
	assert.Equal(t, invoice.ID, *reloaded.InvoiceID)
}

func TestConvertQuotationTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quotation, err := f.svc.Create(ctx, quotationdomain.CreateQuotationRequest{
		ShopID:     f.shopID,
		CustomerID: f.customerID,
		Items:      []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("50")}},
	})
	require.NoError(t, err)

	first, err := f.svc.ConvertToInvoice(ctx, quotation.ID)
	require.NoError(t, err)

	_, err = f.svc.ConvertToInvoice(ctx, quotation.ID)
	assert.ErrorIs(t, err, quotationdomain.ErrAlreadyConverted)

	// The losing conversion rolled back entirely: no stray invoice row and
	// no burnt sequence number.
	var invoices int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&invoices).Error)
	assert.EqualValues(t, 1, invoices)

	next, err := f.svc.Create(ctx, quotationdomain.CreateQuotationRequest{
		ShopID:     f.shopID,
		CustomerID: f.customerID,
		Items:      []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, first.SequenceNumber+1, next.SequenceNumber)
}

func TestQuotationAndInvoiceNumbersShareCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, quotationdomain.CreateQuotationRequest{
		ShopID:     f.shopID,
		CustomerID: f.customerID,
		Items:      []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("50")}},
	})
	require.NoError(t, err)
	require.Equal(t, "Q-MAIN/CUST001-001", first.QuotationNumber)

	// Conversion allocates the next number in the same pair counter.
	invoice, err := f.svc.ConvertToInvoice(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST001-002", invoice.InvoiceNumber)
}

func TestCreateQuotationRequiresItems(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), quotationdomain.CreateQuotationRequest{
		ShopID:     f.shopID,
		CustomerID: f.customerID,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrNoItems)
}
