package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebooks/internal/customer/domain"
	"github.com/smallbiznis/tradebooks/pkg/db/option"
	"github.com/smallbiznis/tradebooks/pkg/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Customer]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{store: repository.NewStore[domain.Customer](db)}
}

func (r *repo) Insert(ctx context.Context, customer *domain.Customer) error {
	customer.Code = strings.TrimSpace(customer.Code)
	if customer.Code == "" {
		return domain.ErrInvalidCode
	}
	if customer.Metadata == nil {
		customer.Metadata = datatypes.JSONMap{}
	}
	return r.store.Create(ctx, customer)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Customer, error) {
	return r.store.FindOne(ctx, &domain.Customer{ID: id})
}

func (r *repo) FindByCode(ctx context.Context, code string) (*domain.Customer, error) {
	return r.store.FindOne(ctx, &domain.Customer{Code: strings.TrimSpace(code)})
}

func (r *repo) List(ctx context.Context) ([]*domain.Customer, error) {
	return r.store.Find(ctx, &domain.Customer{}, option.WithOrder("code"))
}

func (r *repo) CodeOf(ctx context.Context, id snowflake.ID) (string, error) {
	customer, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if customer == nil || strings.TrimSpace(customer.Code) == "" {
		return "", domain.ErrNotFound
	}
	return customer.Code, nil
}
