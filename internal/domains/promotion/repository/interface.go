package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shopcms-backend/internal/domains/promotion/model"
)

// PromotionRepository định nghĩa interface cho promotion data access
type PromotionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	List(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.Promotion, int, error)
	// ListRunning returns active promotions whose window contains now, ordered by sort order desc
	ListRunning(ctx context.Context, now time.Time) ([]*model.Promotion, error)

	Create(ctx context.Context, p *model.Promotion) error
	Update(ctx context.Context, p *model.Promotion) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}
