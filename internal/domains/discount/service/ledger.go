package service

import (
	"context"
	"errors"
	"fmt"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/repository"
	"shopcms-backend/pkg/logger"
)

// Ledger records redemptions. It is the only writer of used_count.
type Ledger struct {
	repo repository.UsageRepository
}

func NewLedger(repo repository.UsageRepository) *Ledger {
	return &Ledger{repo: repo}
}

// CommitUsage records one redemption of a rule.
// Returns model.ErrUsageExceeded (wrapped in *model.UsageExceededError) when the
// cap was reached after selection. Promotion rules have no counters: nil, nil.
func (l *Ledger) CommitUsage(ctx context.Context, commit model.UsageCommit) (*model.DiscountUsage, error) {
	usages, err := l.CommitAll(ctx, []model.UsageCommit{commit})
	if err != nil || len(usages) == 0 {
		return nil, err
	}
	return usages[0], nil
}

// CommitAll records the redemptions of one order, all or nothing
func (l *Ledger) CommitAll(ctx context.Context, commits []model.UsageCommit) ([]*model.DiscountUsage, error) {
	counted := make([]model.UsageCommit, 0, len(commits))
	for _, c := range commits {
		if c.Source == model.RuleSourcePromotion {
			continue
		}
		counted = append(counted, c)
	}
	if len(counted) == 0 {
		return nil, nil
	}

	usages, err := l.repo.CommitUsages(ctx, counted)
	if err != nil {
		var exceeded *model.UsageExceededError
		if errors.As(err, &exceeded) {
			logger.Warn("[LEDGER] Usage limit reached at commit", map[string]interface{}{
				"discount_id":  exceeded.RuleID.String(),
				"per_customer": exceeded.PerCustomer,
				"order_id":     counted[0].OrderID.String(),
			})
			return nil, err
		}
		return nil, fmt.Errorf("commit usage: %w", err)
	}

	logger.Info("[LEDGER] Usage committed", map[string]interface{}{
		"order_id":  counted[0].OrderID.String(),
		"discounts": len(usages),
	})
	return usages, nil
}
