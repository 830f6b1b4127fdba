package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebooks/internal/shop/domain"
	"github.com/smallbiznis/tradebooks/pkg/db/option"
	"github.com/smallbiznis/tradebooks/pkg/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Shop]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{store: repository.NewStore[domain.Shop](db)}
}

func (r *repo) Insert(ctx context.Context, shop *domain.Shop) error {
	shop.Code = strings.TrimSpace(shop.Code)
	if shop.Code == "" {
		return domain.ErrInvalidCode
	}
	if shop.Metadata == nil {
		shop.Metadata = datatypes.JSONMap{}
	}
	return r.store.Create(ctx, shop)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Shop, error) {
	return r.store.FindOne(ctx, &domain.Shop{ID: id})
}

func (r *repo) FindByCode(ctx context.Context, code string) (*domain.Shop, error) {
	return r.store.FindOne(ctx, &domain.Shop{Code: strings.TrimSpace(code)})
}

func (r *repo) List(ctx context.Context) ([]*domain.Shop, error) {
	return r.store.Find(ctx, &domain.Shop{}, option.WithOrder("code"))
}

func (r *repo) CodeOf(ctx context.Context, id snowflake.ID) (string, error) {
	shop, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if shop == nil || strings.TrimSpace(shop.Code) == "" {
		return "", domain.ErrNotFound
	}
	return shop.Code, nil
}
