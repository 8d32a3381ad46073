package repository

import (
	"context"
	"time"

	"shopcms-backend/internal/domains/discount/model"

	"github.com/google/uuid"
)

// DiscountRepository - persistence of discount rules
type DiscountRepository interface {
	// Read operations
	FindByID(ctx context.Context, id uuid.UUID) (*model.Discount, error)
	FindByCode(ctx context.Context, code string) (*model.Discount, error)
	FindByCodes(ctx context.Context, codes []string) ([]*model.Discount, error)
	ListAutoApply(ctx context.Context) ([]*model.Discount, error)
	List(ctx context.Context, filter *model.ListDiscountsFilter) ([]*model.Discount, int, error)

	// Write operations
	Create(ctx context.Context, d *model.Discount) error
	Update(ctx context.Context, d *model.Discount) error
	UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)

	// Utility
	CheckCodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)
}

// UsageRepository - the usage ledger store
type UsageRepository interface {
	// CommitUsages records every commit atomically: each discount's used_count
	// is incremented with a compare-and-increment and a usage row is inserted.
	// If any counter cannot be incremented nothing is written and a
	// *model.UsageExceededError names the offending discount.
	CommitUsages(ctx context.Context, commits []model.UsageCommit) ([]*model.DiscountUsage, error)

	CountByCustomer(ctx context.Context, customerID uuid.UUID) (map[uuid.UUID]int, error)
	GetUsageHistory(ctx context.Context, discountID uuid.UUID, filter *model.UsageHistoryFilter) ([]*model.DiscountUsage, int, error)
	GetUsageStats(ctx context.Context, discountID uuid.UUID) (*model.UsageStats, error)
}
