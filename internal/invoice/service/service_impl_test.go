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
	productdomain "github.com/smallbiznis/tradebooks/internal/product/domain"
	productrepo "github.com/smallbiznis/tradebooks/internal/product/repository"
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

func testConfig() config.Config {
	return config.Config{
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
}

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	svc       invoicedomain.Service
	inventory inventorydomain.Service
	customers customerdomain.Repository
	products  productdomain.Repository

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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

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
	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Cfg:       testConfig(),
		Clock:     fake,
		Allocator: allocator,
		Customers: customers,
		Products:  products,
		Inventory: inventory,
	})

	ctx := context.Background()
	f := &fixture{
		db:        db,
		node:      node,
		clock:     fake,
		svc:       svc,
		inventory: inventory,
		customers: customers,
		products:  products,
	}

	f.shopID = node.Generate()
	require.NoError(t, shops.Insert(ctx, &shopdomain.Shop{ID: f.shopID, Code: "MAIN", Name: "Main"}))

	f.customerID = node.Generate()
	require.NoError(t, customers.Insert(ctx, &customerdomain.Customer{
		ID:      f.customerID,
		Code:    "CUST001",
		Name:    "Chimwemwe Traders",
		Address: "Area 47, Lilongwe",
	}))

	return f
}

func (f *fixture) seedProduct(t *testing.T, barcode string, trackStock bool, onHand string) snowflake.ID {
	t.Helper()
	ctx := context.Background()

	id := f.node.Generate()
	require.NoError(t, f.products.Insert(ctx, &productdomain.Product{
		ID:         id,
		Barcode:    barcode,
		Name:       "Product " + barcode,
		TrackStock: trackStock,
	}))

	if onHand != "" {
		require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
			_, err := f.inventory.AddStock(ctx, tx, inventorydomain.AddStockRequest{
				Barcode:       barcode,
				Quantity:      d(onHand),
				ShopID:        f.shopID,
				ReferenceType: "opening",
				ReferenceID:   f.node.Generate(),
			})
			return err
		}))
	}
	return id
}

func (f *fixture) createInvoice(t *testing.T, items []invoicedomain.CreateItem) *invoicedomain.Invoice {
	t.Helper()
	invoice, err := f.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		ShopID:     f.shopID,
		CustomerID: f.customerID,
		Items:      items,
	})
	require.NoError(t, err)
	return invoice
}

func TestCreateInvoiceAssignsSequentialNumbers(t *testing.T) {
	f := newFixture(t)

	items := []invoicedomain.CreateItem{{Description: "Bags of cement", Quantity: d("2"), RatePerUnit: d("100")}}

	first := f.createInvoice(t, items)
	assert.Equal(t, "I-MAIN/CUST001-001", first.InvoiceNumber)
	assert.Equal(t, int64(1), first.SequenceNumber)

	second := f.createInvoice(t, items)
	assert.Equal(t, "I-MAIN/CUST001-002", second.InvoiceNumber)
	assert.Equal(t, int64(2), second.SequenceNumber)
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	f := newFixture(t)

	invoice := f.createInvoice(t, []invoicedomain.CreateItem{
		{Description: "Bags of cement", Quantity: d("2"), RatePerUnit: d("100")},
	})

	assert.True(t, invoice.GrossTotalAmount.Equal(d("200.00")), "gross: %s", invoice.GrossTotalAmount)
	assert.True(t, invoice.PPDALevyAmount.Equal(d("2.00")), "levy: %s", invoice.PPDALevyAmount)
	assert.True(t, invoice.AmountBeforeVAT.Equal(d("202.00")), "before vat: %s", invoice.AmountBeforeVAT)
	assert.True(t, invoice.VATAmount.Equal(d("33.33")), "vat: %s", invoice.VATAmount)
	assert.True(t, invoice.TotalNetAmount.Equal(d("235.33")), "net: %s", invoice.TotalNetAmount)
	assert.True(t, invoice.TotalPaid.IsZero())
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
}

func TestCreateInvoiceSnapshotsCustomer(t *testing.T) {
	f := newFixture(t)

	invoice := f.createInvoice(t, []invoicedomain.CreateItem{
		{Quantity: d("1"), RatePerUnit: d("50")},
	})
	assert.Equal(t, "Chimwemwe Traders", invoice.CustomerName)
	assert.Equal(t, "Area 47, Lilongwe", invoice.CustomerAddress)

	// Later changes to the customer record must not touch issued documents.
	require.NoError(t, f.db.Exec(`UPDATE customers SET name = 'Renamed' WHERE id = ?`, f.customerID).Error)
	reloaded, err := f.svc.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chimwemwe Traders", reloaded.CustomerName)
}

func TestCreateInvoiceRequiresItems(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		ShopID:     f.shopID,
		CustomerID: f.customerID,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrNoItems)
}

func TestCreateInvoiceUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		ShopID:     f.shopID,
		CustomerID: f.node.Generate(),
		Items:      []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("10")}},
	})
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)
}

func TestUpdateItemsRecomputesWithSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	noLevy := false
	invoice, err := f.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		ShopID:        f.shopID,
		CustomerID:    f.customerID,
		ApplyPPDALevy: &noLevy,
		Items:         []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("100")}},
	})
	require.NoError(t, err)
	require.True(t, invoice.PPDALevyAmount.IsZero())

	updated, err := f.svc.UpdateItems(ctx, invoice.ID, []invoicedomain.CreateItem{
		{Quantity: d("3"), RatePerUnit: d("100")},
	})
	require.NoError(t, err)

	// The no-levy choice made at creation survives the recompute.
	assert.True(t, updated.GrossTotalAmount.Equal(d("300.00")), "gross: %s", updated.GrossTotalAmount)
	assert.True(t, updated.PPDALevyAmount.IsZero(), "levy: %s", updated.PPDALevyAmount)
	assert.True(t, updated.VATAmount.Equal(d("49.50")), "vat: %s", updated.VATAmount)
	assert.True(t, updated.TotalNetAmount.Equal(d("349.50")), "net: %s", updated.TotalNetAmount)
	assert.Len(t, updated.Items, 1)
}

func TestUpdateItemsTerminalInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoice := f.createInvoice(t, []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("10")}})
	require.NoError(t, f.svc.Transition(ctx, invoice.ID, invoicedomain.InvoiceStatusCancelled, "tester"))

	_, err := f.svc.UpdateItems(ctx, invoice.ID, []invoicedomain.CreateItem{{Quantity: d("2"), RatePerUnit: d("10")}})
	assert.ErrorIs(t, err, invoicedomain.ErrTerminalStatus)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := f.createInvoice(t, []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("10")}})
	require.NoError(t, f.svc.Transition(ctx, due.ID, invoicedomain.InvoiceStatusSent, "tester"))

	draft := f.createInvoice(t, []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("10")}})

	count, err := f.svc.MarkOverdue(ctx, f.clock.Now().AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	reloaded, err := f.svc.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, reloaded.Status)

	untouched, err := f.svc.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, untouched.Status)
}

func TestPreviewNumberDoesNotReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	preview, err := f.svc.PreviewNumber(ctx, f.shopID, f.customerID)
	require.NoError(t, err)
	assert.Equal(t, "I-MAIN/CUST001-001", preview)

	again, err := f.svc.PreviewNumber(ctx, f.shopID, f.customerID)
	require.NoError(t, err)
	assert.Equal(t, preview, again)

	invoice := f.createInvoice(t, []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("10")}})
	assert.Equal(t, preview, invoice.InvoiceNumber)
}

func TestListInvoicesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createInvoice(t, []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("10")}})
	require.NoError(t, f.svc.Transition(ctx, first.ID, invoicedomain.InvoiceStatusSent, "tester"))
	f.createInvoice(t, []invoicedomain.CreateItem{{Quantity: d("1"), RatePerUnit: d("10")}})

	sent := invoicedomain.InvoiceStatusSent
	invoices, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: &sent})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, first.ID, invoices[0].ID)

	all, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{CustomerID: &f.customerID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
