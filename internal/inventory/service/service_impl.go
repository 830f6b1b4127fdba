package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	inventorydomain "github.com/smallbiznis/tradebooks/internal/inventory/domain"
	"github.com/smallbiznis/tradebooks/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) inventorydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("inventory.service"),
		genID: p.GenID,
	}
}

func (s *Service) RemoveStock(ctx context.Context, tx *gorm.DB, req inventorydomain.RemoveStockRequest) (decimal.Decimal, error) {
	if err := validateMovement(req.Barcode, req.Quantity, req.ReferenceType, req.ReferenceID); err != nil {
		return decimal.Zero, err
	}

	level, err := s.lockLevel(ctx, tx, req.Barcode, req.ShopID)
	if err != nil {
		return decimal.Zero, err
	}
	if level == nil {
		return decimal.Zero, inventorydomain.ErrUnknownBarcode
	}

	remaining := level.Quantity.Sub(req.Quantity)
	if remaining.IsNegative() {
		return decimal.Zero, inventorydomain.ErrInsufficientStock
	}

	if err := s.insertMovement(ctx, tx, inventorydomain.StockMovement{
		ID:              s.genID.Generate(),
		Barcode:         req.Barcode,
		ShopID:          req.ShopID,
		Direction:       inventorydomain.MovementOut,
		Quantity:        req.Quantity,
		Actor:           req.Actor,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}); err != nil {
		return decimal.Zero, err
	}

	if err := s.updateLevel(ctx, tx, level.ID, remaining); err != nil {
		return decimal.Zero, err
	}
	return remaining, nil
}

func (s *Service) AddStock(ctx context.Context, tx *gorm.DB, req inventorydomain.AddStockRequest) (decimal.Decimal, error) {
	if err := validateMovement(req.Barcode, req.Quantity, req.ReferenceType, req.ReferenceID); err != nil {
		return decimal.Zero, err
	}

	level, err := s.lockLevel(ctx, tx, req.Barcode, req.ShopID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.insertMovement(ctx, tx, inventorydomain.StockMovement{
		ID:              s.genID.Generate(),
		Barcode:         req.Barcode,
		ShopID:          req.ShopID,
		Direction:       inventorydomain.MovementIn,
		Quantity:        req.Quantity,
		Actor:           req.Actor,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}); err != nil {
		return decimal.Zero, err
	}

	now := time.Now().UTC()
	if level == nil {
		created := inventorydomain.StockLevel{
			ID:        s.genID.Generate(),
			Barcode:   req.Barcode,
			ShopID:    req.ShopID,
			Quantity:  req.Quantity,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
			return decimal.Zero, err
		}
		return created.Quantity, nil
	}

	remaining := level.Quantity.Add(req.Quantity)
	if err := s.updateLevel(ctx, tx, level.ID, remaining); err != nil {
		return decimal.Zero, err
	}
	return remaining, nil
}

func (s *Service) ReverseForReference(ctx context.Context, tx *gorm.DB, referenceType string, referenceID snowflake.ID, actor string) error {
	var movements []inventorydomain.StockMovement
	err := tx.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ? AND direction = ?",
			referenceType, referenceID, inventorydomain.MovementOut).
		Find(&movements).Error
	if err != nil {
		return err
	}

	for _, movement := range movements {
		if _, err := s.AddStock(ctx, tx, inventorydomain.AddStockRequest{
			Barcode:         movement.Barcode,
			Quantity:        movement.Quantity,
			ShopID:          movement.ShopID,
			Actor:           actor,
			ReferenceType:   referenceType,
			ReferenceID:     referenceID,
			ReferenceNumber: movement.ReferenceNumber,
			Notes:           "reversal of " + movement.ID.String(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) StockOf(ctx context.Context, barcode string, shopID snowflake.ID) (decimal.Decimal, error) {
	var level inventorydomain.StockLevel
	err := s.db.WithContext(ctx).
		Where("barcode = ? AND shop_id = ?", strings.TrimSpace(barcode), shopID).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, inventorydomain.ErrUnknownBarcode
		}
		return decimal.Zero, err
	}
	return level.Quantity, nil
}

func validateMovement(barcode string, quantity decimal.Decimal, referenceType string, referenceID snowflake.ID) error {
	if strings.TrimSpace(barcode) == "" {
		return inventorydomain.ErrUnknownBarcode
	}
	if quantity.IsNegative() || quantity.IsZero() {
		return inventorydomain.ErrInvalidQuantity
	}
	if strings.TrimSpace(referenceType) == "" || referenceID == 0 {
		return inventorydomain.ErrDuplicateMovement
	}
	return nil
}

func (s *Service) lockLevel(ctx context.Context, tx *gorm.DB, barcode string, shopID snowflake.ID) (*inventorydomain.StockLevel, error) {
	query := `SELECT id, barcode, shop_id, quantity, updated_at
		 FROM stock_levels
		 WHERE barcode = ? AND shop_id = ?`
	if tx.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var level inventorydomain.StockLevel
	result := tx.WithContext(ctx).Raw(query, strings.TrimSpace(barcode), shopID).Scan(&level)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &level, nil
}

func (s *Service) updateLevel(ctx context.Context, tx *gorm.DB, levelID snowflake.ID, quantity decimal.Decimal) error {
	return tx.WithContext(ctx).
		Model(&inventorydomain.StockLevel{}).
		Where("id = ?", levelID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Service) insertMovement(ctx context.Context, tx *gorm.DB, movement inventorydomain.StockMovement) error {
	movement.CreatedAt = time.Now().UTC()
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return inventorydomain.ErrDuplicateMovement
		}
		return err
	}
	return nil
}
