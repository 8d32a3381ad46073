package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/repository"
	"shopcms-backend/pkg/cache"
	"shopcms-backend/pkg/logger"
)

const (
	ruleCachePattern = "discount:*"
	autoRulesKey     = "discount:auto"
)

// discountService xử lý admin CRUD và cung cấp candidate rules cho checkout
type discountService struct {
	repo      repository.DiscountRepository
	usageRepo repository.UsageRepository
	cache     cache.Cache
	cacheTTL  time.Duration
	now       Clock
}

func NewDiscountService(
	repo repository.DiscountRepository,
	usageRepo repository.UsageRepository,
	cache cache.Cache,
	cacheTTL time.Duration,
) ServiceInterface {
	return &discountService{
		repo:      repo,
		usageRepo: usageRepo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// -------------------------------------------------------------------
// CREATE DISCOUNT
// -------------------------------------------------------------------

// CreateDiscount tạo discount mới
//
// Business Logic:
// 1. Normalize + validate request
// 2. Build the rule and check cross-field invariants
// 3. Check code uniqueness among live discounts
// 4. Persist, then drop cached rules
func (s *discountService) CreateDiscount(ctx context.Context, req *model.CreateDiscountRequest) (*model.Discount, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d, err := req.ToDiscount()
	if err != nil {
		return nil, err
	}
	if err := model.ValidateRule(d); err != nil {
		return nil, err
	}

	if d.Code != "" {
		exists, err := s.repo.CheckCodeExists(ctx, d.Code, nil)
		if err != nil {
			return nil, fmt.Errorf("check code exists: %w", err)
		}
		if exists {
			return nil, model.ErrDuplicateCode
		}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.InvalidateRuleCache(ctx)

	logger.Info("Discount created", map[string]interface{}{
		"discount_id": d.ID.String(),
		"code":        d.Code,
		"type":        string(d.Type()),
		"auto_apply":  d.AutoApply,
	})
	return d, nil
}

// -------------------------------------------------------------------
// UPDATE DISCOUNT
// -------------------------------------------------------------------

// UpdateDiscount cập nhật discount với optimistic locking
//
// Business Logic:
// 1. Load current discount
// 2. Once redeemed, code/type/value/targeting are frozen
// 3. max_uses can never drop below used_count
// 4. Merge, re-validate, persist with the request version
func (s *discountService) UpdateDiscount(ctx context.Context, id uuid.UUID, req *model.UpdateDiscountRequest) (*model.Discount, error) {
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

	if existing.Limits.UsedCount > 0 {
		if frozen := req.HasRuleChanges(existing); len(frozen) > 0 {
			return nil, fmt.Errorf("%w: %v", model.ErrFrozenField, frozen)
		}
	}
	if req.MaxUses != nil && *req.MaxUses > 0 && *req.MaxUses < existing.Limits.UsedCount {
		return nil, model.ErrMaxUsesBelowUsed
	}

	updated, err := req.ApplyTo(existing)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateRule(updated); err != nil {
		return nil, err
	}

	if updated.Code != "" && updated.Code != existing.Code {
		exists, err := s.repo.CheckCodeExists(ctx, updated.Code, &id)
		if err != nil {
			return nil, fmt.Errorf("check code exists: %w", err)
		}
		if exists {
			return nil, model.ErrDuplicateCode
		}
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}

	s.InvalidateRuleCache(ctx)

	logger.Info("Discount updated", map[string]interface{}{
		"discount_id": id.String(),
		"version":     updated.Version,
	})
	return updated, nil
}

func (s *discountService) UpdateDiscountStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	if err := s.repo.UpdateStatus(ctx, id, isActive); err != nil {
		return err
	}
	s.InvalidateRuleCache(ctx)

	logger.Info("Discount status changed", map[string]interface{}{
		"discount_id": id.String(),
		"is_active":   isActive,
	})
	return nil
}

// DeleteDiscount soft-deletes a never-used discount and releases its code
func (s *discountService) DeleteDiscount(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !existing.CanBeDeleted() {
		return model.ErrCannotDeleteUsed
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.InvalidateRuleCache(ctx)

	logger.Info("Discount deleted", map[string]interface{}{
		"discount_id": id.String(),
		"code":        existing.Code,
	})
	return nil
}

// -------------------------------------------------------------------
// READ
// -------------------------------------------------------------------

func (s *discountService) GetDiscountByID(ctx context.Context, id uuid.UUID) (*model.DiscountResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.usageRepo.GetUsageStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get usage stats: %w", err)
	}

	resp := model.ToDiscountResponse(d, s.now())
	resp.Stats = stats
	return &resp, nil
}

func (s *discountService) ListDiscounts(ctx context.Context, filter *model.ListDiscountsFilter) ([]model.DiscountResponse, int, error) {
	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	discounts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	items := make([]model.DiscountResponse, 0, len(discounts))
	for _, d := range discounts {
		items = append(items, model.ToDiscountResponse(d, now))
	}
	return items, total, nil
}

// GetUsageHistory lấy lịch sử sử dụng (paginated) kèm stats tổng
func (s *discountService) GetUsageHistory(ctx context.Context, id uuid.UUID, filter *model.UsageHistoryFilter) (*model.UsageHistoryResponse, error) {
	filter.Normalize()

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	usages, total, err := s.usageRepo.GetUsageHistory(ctx, id, filter)
	if err != nil {
		return nil, fmt.Errorf("get usage history: %w", err)
	}

	stats, err := s.usageRepo.GetUsageStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get usage stats: %w", err)
	}

	return &model.UsageHistoryResponse{
		DiscountID: d.ID,
		Code:       d.Code,
		Usages:     usages,
		Stats:      stats,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// -------------------------------------------------------------------
// CHECKOUT SUPPORT
// -------------------------------------------------------------------

// CandidateRules returns the auto-apply rules plus the discounts matching the
// entered codes. Auto-apply rules are served from cache.
func (s *discountService) CandidateRules(ctx context.Context, codes []string) ([]model.Rule, error) {
	auto, err := s.autoApplyDiscounts(ctx)
	if err != nil {
		return nil, err
	}

	var coded []*model.Discount
	if len(codes) > 0 {
		coded, err = s.repo.FindByCodes(ctx, codes)
		if err != nil {
			return nil, fmt.Errorf("find discounts by codes: %w", err)
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(auto)+len(coded))
	rules := make([]model.Rule, 0, len(auto)+len(coded))
	for _, d := range append(auto, coded...) {
		if d.IsDeleted() {
			continue
		}
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		rules = append(rules, d.Rule)
	}
	return rules, nil
}

func (s *discountService) autoApplyDiscounts(ctx context.Context) ([]*model.Discount, error) {
	var records []model.DiscountRecord
	hit, err := s.cache.Get(ctx, autoRulesKey, &records)
	if err != nil {
		logger.Warn("Rule cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if hit {
		discounts := make([]*model.Discount, 0, len(records))
		for _, rec := range records {
			d, err := rec.ToDiscount()
			if err != nil {
				return nil, fmt.Errorf("decode cached discount %s: %w", rec.ID, err)
			}
			discounts = append(discounts, d)
		}
		return discounts, nil
	}

	discounts, err := s.repo.ListAutoApply(ctx)
	if err != nil {
		return nil, fmt.Errorf("list auto-apply discounts: %w", err)
	}

	records = make([]model.DiscountRecord, 0, len(discounts))
	for _, d := range discounts {
		records = append(records, d.ToRecord())
	}
	if err := s.cache.Set(ctx, autoRulesKey, records, s.cacheTTL); err != nil {
		logger.Warn("Rule cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return discounts, nil
}

// InvalidateRuleCache drops every cached discount rule. Cache failures are
// logged; the next read falls through to storage.
func (s *discountService) InvalidateRuleCache(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, ruleCachePattern); err != nil {
		logger.Warn("Rule cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}

// DeactivateExpired flips is_active off for discounts whose end date passed
func (s *discountService) DeactivateExpired(ctx context.Context) (int, error) {
	count, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired discounts: %w", err)
	}
	if count > 0 {
		s.InvalidateRuleCache(ctx)
	}
	return count, nil
}
