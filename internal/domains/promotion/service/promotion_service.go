package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	discountModel "shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/promotion/model"
	"shopcms-backend/internal/domains/promotion/repository"
	"shopcms-backend/pkg/cache"
	"shopcms-backend/pkg/logger"
)

const (
	promotionCachePattern = "promotion:*"
	runningPromotionsKey  = "promotion:running"
)

// promotionService xử lý business logic cho promotion
type promotionService struct {
	repo     repository.PromotionRepository
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewPromotionService(repo repository.PromotionRepository, cache cache.Cache, cacheTTL time.Duration) ServiceInterface {
	return &promotionService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

func (s *promotionService) CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPromotion()
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	logger.Info("Promotion created", map[string]interface{}{
		"promotion_id": p.ID.String(),
		"type":         string(p.Type),
	})
	return p, nil
}

// UpdatePromotion thay thế toàn bộ promotion, optimistic locking qua version
func (s *promotionService) UpdatePromotion(ctx context.Context, id uuid.UUID, req *model.UpdatePromotionRequest) (*model.Promotion, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Version != req.Version {
		return nil, model.ErrVersionConflict
	}

	p := req.ToPromotion()
	p.ID = existing.ID
	p.Version = req.Version
	if req.IsActive == nil {
		p.IsActive = existing.IsActive
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	logger.Info("Promotion updated", map[string]interface{}{
		"promotion_id": id.String(),
		"version":      p.Version,
	})
	return p, nil
}

func (s *promotionService) GetPromotionByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *promotionService) ListPromotions(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.Promotion, int, error) {
	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}

func (s *promotionService) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)

	logger.Info("Promotion deleted", map[string]interface{}{"promotion_id": id.String()})
	return nil
}

// -------------------------------------------------------------------
// STOREFRONT & CHECKOUT
// -------------------------------------------------------------------

// ListActivePromotions trả về các promotion đang chạy, tách visual / sales
func (s *promotionService) ListActivePromotions(ctx context.Context) (*model.ActivePromotionsResponse, error) {
	running, err := s.running(ctx)
	if err != nil {
		return nil, err
	}

	resp := &model.ActivePromotionsResponse{
		Visual: []*model.Promotion{},
		Sales:  []*model.Promotion{},
	}
	for _, p := range running {
		if p.Type.IsVisual() {
			resp.Visual = append(resp.Visual, p)
		} else {
			resp.Sales = append(resp.Sales, p)
		}
	}
	return resp, nil
}

// SalesRules maps the running sales promotions to checkout rules.
// Visual promotions are skipped.
func (s *promotionService) SalesRules(ctx context.Context) ([]discountModel.Rule, error) {
	running, err := s.running(ctx)
	if err != nil {
		return nil, err
	}

	rules := make([]discountModel.Rule, 0, len(running))
	for _, p := range running {
		if rule, ok := p.Rule(); ok {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

// running reads through the cache. The cached window is re-checked against now
// so an entry cached just before a promotion ends never outlives it.
func (s *promotionService) running(ctx context.Context) ([]*model.Promotion, error) {
	now := s.now()

	var cached []*model.Promotion
	hit, err := s.cache.Get(ctx, runningPromotionsKey, &cached)
	if err != nil {
		logger.Warn("Promotion cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if !hit {
		cached, err = s.repo.ListRunning(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("list running promotions: %w", err)
		}
		if err := s.cache.Set(ctx, runningPromotionsKey, cached, s.cacheTTL); err != nil {
			logger.Warn("Promotion cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	running := make([]*model.Promotion, 0, len(cached))
	for _, p := range cached {
		if p.IsRunning(now) {
			running = append(running, p)
		}
	}
	return running, nil
}

// DeactivateExpired switches off promotions whose end_date has passed
func (s *promotionService) DeactivateExpired(ctx context.Context) (int, error) {
	count, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired promotions: %w", err)
	}
	if count > 0 {
		s.invalidate(ctx)
	}
	return count, nil
}

func (s *promotionService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, promotionCachePattern); err != nil {
		logger.Warn("Promotion cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
