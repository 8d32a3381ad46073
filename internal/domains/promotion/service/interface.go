package service

import (
	"context"

	"github.com/google/uuid"

	discountModel "shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/promotion/model"
)

type ServiceInterface interface {
	// Admin methods
	CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error)
	UpdatePromotion(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.Promotion, error)
	GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	ListPromotions(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.Promotion, int, error)
	DeletePromotion(ctx context.Context, id uuid.UUID) error

	// Storefront
	ListActivePromotions(ctx context.Context) (*model.ActivePromotionsResponse, error)

	// Internal methods (checkout, worker)
	SalesRules(ctx context.Context) ([]discountModel.Rule, error)
	DeactivateExpired(ctx context.Context) (int, error)
}
