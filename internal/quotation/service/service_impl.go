package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebooks/internal/clock"
	"github.com/smallbiznis/tradebooks/internal/config"
	customerdomain "github.com/smallbiznis/tradebooks/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/tradebooks/internal/invoice/domain"
	quotationdomain "github.com/smallbiznis/tradebooks/internal/quotation/domain"
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

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Clock      clock.Clock
	Allocator  sequencedomain.Allocator
	Customers  customerdomain.Repository
	InvoiceSvc invoicedomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.Config
	clock      clock.Clock
	allocator  sequencedomain.Allocator
	customers  customerdomain.Repository
	invoiceSvc invoicedomain.Service
}

func NewService(p Params) quotationdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("quotation.service"),
		genID:      p.GenID,
		cfg:        p.Cfg,
		clock:      p.Clock,
		allocator:  p.Allocator,
		customers:  p.Customers,
		invoiceSvc: p.InvoiceSvc,
	}
}

func (s *Service) Create(ctx context.Context, req quotationdomain.CreateQuotationRequest) (*quotationdomain.Quotation, error) {
	if len(req.Items) == 0 {
		return nil, invoicedomain.ErrNoItems
	}

	opts, err := tax.DefaultsFromConfig(s.cfg.Tax)
	if err != nil {
		return nil, err
	}
	if req.ApplyPPDALevy != nil {
		opts.ApplyPPDALevy = *req.ApplyPPDALevy
	}
	if req.PPDALevyPercentage != nil {
		opts.PPDALevyPercentage = *req.PPDALevyPercentage
	}
	if req.VATPercentage != nil {
		opts.VATPercentage = *req.VATPercentage
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

	quotationDate := req.QuotationDate
	if quotationDate.IsZero() {
		quotationDate = s.clock.Now()
	}
	validUntil := req.ValidUntil
	if validUntil.IsZero() {
		validUntil = quotationDate.AddDate(0, 0, 14)
	}

	var created quotationdomain.Quotation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocation, err := s.allocator.AllocateTx(ctx, tx, req.ShopID, req.CustomerID, format.QuotationFormat(s.cfg.Number))
		if err != nil {
			return err
		}

		now := s.clock.Now()
		created = quotationdomain.Quotation{
			ID:                 s.genID.Generate(),
			QuotationNumber:    allocation.Number,
			SequenceNumber:     allocation.Sequence,
			ShopID:             req.ShopID,
			CustomerID:         req.CustomerID,
			CustomerName:       customerName,
			CustomerAddress:    customerAddress,
			QuotationDate:      quotationDate,
			ValidUntil:         validUntil,
			ApplyPPDALevy:      opts.ApplyPPDALevy,
			PPDALevyPercentage: opts.PPDALevyPercentage,
			VATPercentage:      opts.VATPercentage,
			GrossTotalAmount:   totals.Gross,
			PPDALevyAmount:     totals.PPDALevyAmount,
			AmountBeforeVAT:    totals.AmountBeforeVAT,
			VATAmount:          totals.VATAmount,
			TotalNetAmount:     totals.TotalNet,
			Status:             quotationdomain.QuotationStatusDraft,
			Metadata:           datatypes.JSONMap{},
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
			return err
		}

		for _, item := range req.Items {
			line := quotationdomain.QuotationItem{
				ID:          s.genID.Generate(),
				QuotationID: created.ID,
				ProductID:   item.ProductID,
				Description: item.Description,
				Quantity:    item.Quantity,
				RatePerUnit: item.RatePerUnit,
				CreatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
				return err
			}
			created.Items = append(created.Items, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quotation created",
		zap.String("quotation_id", created.ID.String()),
		zap.String("quotation_number", created.QuotationNumber),
	)
	return &created, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*quotationdomain.Quotation, error) {
	var quotation quotationdomain.Quotation
	err := s.db.WithContext(ctx).Preload("Items").First(&quotation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, quotationdomain.ErrNotFound
		}
		return nil, err
	}
	return &quotation, nil
}

func (s *Service) List(ctx context.Context, customerID *snowflake.ID) ([]quotationdomain.Quotation, error) {
	stmt := s.db.WithContext(ctx).Model(&quotationdomain.Quotation{})
	if customerID != nil {
		stmt = stmt.Where("customer_id = ?", *customerID)
	}

	var quotations []quotationdomain.Quotation
	if err := stmt.Order("quotation_date, quotation_number").Find(&quotations).Error; err != nil {
		return nil, err
	}
	return quotations, nil
}

func (s *Service) ConvertToInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	quotation, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items := make([]invoicedomain.CreateItem, 0, len(quotation.Items))
	for _, item := range quotation.Items {
		items = append(items, invoicedomain.CreateItem{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			RatePerUnit: item.RatePerUnit,
		})
	}

	applyPPDA := quotation.ApplyPPDALevy
	ppdaPct := quotation.PPDALevyPercentage
	vatPct := quotation.VATPercentage

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded flip first. A racing converter rolls back here before any
		// sequence number is allocated for its invoice.
		result := tx.WithContext(ctx).Exec(
			`UPDATE quotations
			 SET status = ?, updated_at = ?
			 WHERE id = ? AND status != ?`,
			quotationdomain.QuotationStatusConverted,
			s.clock.Now(),
			quotation.ID,
			quotationdomain.QuotationStatusConverted,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return quotationdomain.ErrAlreadyConverted
		}

		invoice, err = s.invoiceSvc.CreateTx(ctx, tx, invoicedomain.CreateInvoiceRequest{
			ShopID:             quotation.ShopID,
			CustomerID:         quotation.CustomerID,
			CustomerName:       quotation.CustomerName,
			CustomerAddress:    quotation.CustomerAddress,
			ApplyPPDALevy:      &applyPPDA,
			PPDALevyPercentage: &ppdaPct,
			VATPercentage:      &vatPct,
			Items:              items,
		})
		if err != nil {
			return err
		}

		return tx.WithContext(ctx).Exec(
			`UPDATE quotations SET invoice_id = ? WHERE id = ?`,
			invoice.ID,
			quotation.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quotation converted",
		zap.String("quotation_id", quotation.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
	)
	return invoice, nil
}
