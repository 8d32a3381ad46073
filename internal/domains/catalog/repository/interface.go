package repository

import (
	"context"

	"shopcms-backend/internal/domains/catalog/model"

	"github.com/google/uuid"
)

// Repository - read access to the product catalog
type Repository interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Product, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*model.Category, error)
}
