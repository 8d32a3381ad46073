package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shopcms-backend/internal/domains/catalog/model"
	"shopcms-backend/internal/domains/catalog/repository"
	"shopcms-backend/pkg/cache"
	"shopcms-backend/pkg/logger"
)

const categoriesCacheKey = "catalog:categories"

type ServiceInterface interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

type catalogService struct {
	repo     repository.Repository
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewCatalogService(repo repository.Repository, cache cache.Cache, cacheTTL time.Duration) ServiceInterface {
	return &catalogService{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// GetProductsByIDs indexes the found products by id
func (s *catalogService) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// ListCategories returns active categories (cache-aside)
func (s *catalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	if hit, err := s.cache.Get(ctx, categoriesCacheKey, &categories); err == nil && hit {
		return categories, nil
	}

	categories, err := s.repo.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, categoriesCacheKey, categories, s.cacheTTL); err != nil {
		logger.Warn("Category cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return categories, nil
}
