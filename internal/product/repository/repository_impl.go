package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebooks/internal/product/domain"
	"github.com/smallbiznis/tradebooks/pkg/db/option"
	"github.com/smallbiznis/tradebooks/pkg/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Product]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{store: repository.NewStore[domain.Product](db)}
}

func (r *repo) Insert(ctx context.Context, product *domain.Product) error {
	product.Barcode = strings.TrimSpace(product.Barcode)
	if product.Barcode == "" {
		return domain.ErrInvalidBarcode
	}
	if product.Metadata == nil {
		product.Metadata = datatypes.JSONMap{}
	}
	return r.store.Create(ctx, product)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Product, error) {
	return r.store.FindOne(ctx, &domain.Product{ID: id})
}

func (r *repo) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return r.store.FindOne(ctx, &domain.Product{Barcode: strings.TrimSpace(barcode)})
}

func (r *repo) List(ctx context.Context) ([]*domain.Product, error) {
	return r.store.Find(ctx, &domain.Product{}, option.WithOrder("barcode"))
}
