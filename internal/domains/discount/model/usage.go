package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountUsage is one committed redemption
type DiscountUsage struct {
	ID             uuid.UUID       `json:"id"`
	DiscountID     uuid.UUID       `json:"discount_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	OrderID        uuid.UUID       `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	UsedAt         time.Time       `json:"used_at"`
}

// UsageCommit is the ledger input for one rule of a finalized order
type UsageCommit struct {
	RuleID         uuid.UUID
	Source         RuleSource
	CustomerID     *uuid.UUID
	OrderID        uuid.UUID
	DiscountAmount decimal.Decimal
}

// UsageStats aggregates the usage history of a discount
type UsageStats struct {
	TotalUses       int             `json:"total_uses"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	UniqueCustomers int             `json:"unique_customers"`
	FirstUsedAt     *time.Time      `json:"first_used_at,omitempty"`
	LastUsedAt      *time.Time      `json:"last_used_at,omitempty"`
}

// ComputeUsageStats folds a usage slice into stats
func ComputeUsageStats(usages []*DiscountUsage) *UsageStats {
	stats := &UsageStats{TotalDiscount: decimal.Zero}
	customers := make(map[uuid.UUID]struct{})

	for _, u := range usages {
		stats.TotalUses++
		stats.TotalDiscount = stats.TotalDiscount.Add(u.DiscountAmount)
		if u.CustomerID != nil {
			customers[*u.CustomerID] = struct{}{}
		}

		usedAt := u.UsedAt
		if stats.FirstUsedAt == nil || usedAt.Before(*stats.FirstUsedAt) {
			stats.FirstUsedAt = &usedAt
		}
		if stats.LastUsedAt == nil || usedAt.After(*stats.LastUsedAt) {
			stats.LastUsedAt = &usedAt
		}
	}

	stats.UniqueCustomers = len(customers)
	return stats
}
