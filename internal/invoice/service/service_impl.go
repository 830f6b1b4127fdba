package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebooks/internal/clock"
	"github.com/smallbiznis/tradebooks/internal/config"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	productdomain "github.com/smallbiznis/tradebooks/internal/product/domain"
	sequencedomain "github.com/smallbiznis/tradebooks/internal/sequence/domain"
	"github.com/smallbiznis/tradebooks/internal/sequence/format"
	"github.com/smallbiznis/tradebooks/internal/tax"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       config.Config
	Clock     clock.Clock
	Allocator sequencedomain.Allocator
	Customers customerdomain.Repository
	Products  productdomain.Repository
	Inventory inventorydomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       config.Config
	clock     clock.Clock
	allocator sequencedomain.Allocator
	customers customerdomain.Repository
	products  productdomain.Repository
	inventory inventorydomain.Service
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		cfg:       p.Cfg,
		clock:     p.Clock,
		allocator: p.Allocator,
		customers: p.Customers,
		products:  p.Products,
		inventory: p.Inventory,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	var created *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.CreateTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	if len(req.Items) == 0 {
		return nil, invoicedomain.ErrNoItems
	}

	opts, err := s.resolveTaxOptions(req.ApplyPPDALevy, req.PPDALevyPercentage, req.VATPercentage)
	if err != nil {
		return nil, err
	}

	lines := make([]tax.Line, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, tax.Line{Quantity: item.Quantity, RatePerUnit: item.RatePerUnit})
	}
	totals, err := tax.Compute(lines, opts)
	if err != nil {
		return nil, err
	}

	customerName := strings.TrimSpace(req.CustomerName)
	customerAddress := strings.TrimSpace(req.CustomerAddress)
	if customerName == "" {
		customer, err := s.customers.FindByID(ctx, req.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, customerdomain.ErrNotFound
		}
		customerName = customer.Name
		if customerAddress == "" {
			customerAddress = customer.Address
		}
	}

	invoiceDate := req.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = s.clock.Now()
	}
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = invoiceDate.AddDate(0, 0, 30)
	}

	allocation, err := s.allocator.AllocateTx(ctx, tx, req.ShopID, req.CustomerID, format.InvoiceFormat(s.cfg.Number))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	created := invoicedomain.Invoice{
		ID:                 s.genID.Generate(),
		InvoiceNumber:      allocation.Number,
		SequenceNumber:     allocation.Sequence,
		ShopID:             req.ShopID,
		CustomerID:         req.CustomerID,
		CustomerName:       customerName,
		CustomerAddress:    customerAddress,
		InvoiceDate:        invoiceDate,
		DueDate:            dueDate,
		ApplyPPDALevy:      opts.ApplyPPDALevy,
		PPDALevyPercentage: opts.PPDALevyPercentage,
		VATPercentage:      opts.VATPercentage,
		GrossTotalAmount:   totals.Gross,
		PPDALevyAmount:     totals.PPDALevyAmount,
		AmountBeforeVAT:    totals.AmountBeforeVAT,
		VATAmount:          totals.VATAmount,
		TotalNetAmount:     totals.TotalNet,
		TotalPaid:          decimal.Zero,
		Status:             invoicedomain.InvoiceStatusDraft,
		Metadata:           datatypes.JSONMap{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		line := invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			InvoiceID:   created.ID,
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			RatePerUnit: item.RatePerUnit,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
			return nil, err
		}
		created.Items = append(created.Items, line)
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", created.ID.String()),
		zap.String("invoice_number", created.InvoiceNumber),
		zap.String("total_net", created.TotalNetAmount.StringFixed(2)),
	)
	return &created, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).Preload("Items").First(&invoice, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	stmt := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{})
	if req.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *req.CustomerID)
	}
	if req.ShopID != nil {
		stmt = stmt.Where("shop_id = ?", *req.ShopID)
	}
	if req.Status != nil {
		stmt = stmt.Where("status = ?", *req.Status)
	}
	if req.DateFrom != nil {
		stmt = stmt.Where("invoice_date >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		stmt = stmt.Where("invoice_date <= ?", *req.DateTo)
	}

	var invoices []invoicedomain.Invoice
	if err := stmt.Order("invoice_date, invoice_number").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Service) UpdateItems(ctx context.Context, id snowflake.ID, items []invoicedomain.CreateItem) (*invoicedomain.Invoice, error) {
	if len(items) == 0 {
		return nil, invoicedomain.ErrNoItems
	}

	var updated invoicedomain.Invoice
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

		lines := make([]tax.Line, 0, len(items))
		for _, item := range items {
			lines = append(lines, tax.Line{Quantity: item.Quantity, RatePerUnit: item.RatePerUnit})
		}
		// Recompute with the invoice's snapshotted settings, not the
		// current defaults.
		totals, err := tax.Compute(lines, tax.Options{
			ApplyPPDALevy:      invoice.ApplyPPDALevy,
			PPDALevyPercentage: invoice.PPDALevyPercentage,
			VATPercentage:      invoice.VATPercentage,
		})
		if err != nil {
			return err
		}

		if err := tx.WithContext(ctx).
			Where("invoice_id = ?", invoice.ID).
			Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
			return err
		}

		now := s.clock.Now()
		invoice.Items = invoice.Items[:0]
		for _, item := range items {
			line := invoicedomain.InvoiceItem{
				ID:          s.genID.Generate(),
				InvoiceID:   invoice.ID,
				ProductID:   item.ProductID,
				Description: item.Description,
				Quantity:    item.Quantity,
				RatePerUnit: item.RatePerUnit,
				CreatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
				return err
			}
			invoice.Items = append(invoice.Items, line)
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET gross_total_amount = ?, ppda_levy_amount = ?, amount_before_vat = ?,
			     vat_amount = ?, total_net_amount = ?, updated_at = ?
			 WHERE id = ?`,
			totals.Gross,
			totals.PPDALevyAmount,
			totals.AmountBeforeVAT,
			totals.VATAmount,
			totals.TotalNet,
			now,
			invoice.ID,
		).Error; err != nil {
			return err
		}

		invoice.GrossTotalAmount = totals.Gross
		invoice.PPDALevyAmount = totals.PPDALevyAmount
		invoice.AmountBeforeVAT = totals.AmountBeforeVAT
		invoice.VATAmount = totals.VATAmount
		invoice.TotalNetAmount = totals.TotalNet
		invoice.UpdatedAt = now
		updated = *invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, updated_at = ?
		 WHERE status IN (?, ?) AND due_date < ?`,
		invoicedomain.InvoiceStatusOverdue,
		s.clock.Now(),
		invoicedomain.InvoiceStatusSent,
		invoicedomain.InvoiceStatusPartiallyPaid,
		asOf,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("invoices marked overdue", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

func (s *Service) PreviewNumber(ctx context.Context, shopID, customerID snowflake.ID) (string, error) {
	allocation, err := s.allocator.Preview(ctx, shopID, customerID, format.InvoiceFormat(s.cfg.Number))
	if err != nil {
		return "", err
	}
	return allocation.Number, nil
}

func (s *Service) resolveTaxOptions(applyPPDA *bool, ppdaPct, vatPct *decimal.Decimal) (tax.Options, error) {
	opts, err := tax.DefaultsFromConfig(s.cfg.Tax)
	if err != nil {
		return tax.Options{}, err
	}
	if applyPPDA != nil {
		opts.ApplyPPDALevy = *applyPPDA
	}
	if ppdaPct != nil {
		opts.PPDALevyPercentage = *ppdaPct
	}
	if vatPct != nil {
		opts.VATPercentage = *vatPct
	}
	return opts, nil
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
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

	if err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Find(&invoice.Items).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}
