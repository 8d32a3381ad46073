package service

import (
	"context"
	"time"

	catalogModel "shopcms-backend/internal/domains/catalog/model"
	"shopcms-backend/internal/domains/discount/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ServiceInterface interface {
	// Admin methods
	CreateDiscount(ctx context.Context, req *model.CreateDiscountRequest) (*model.Discount, error)
	UpdateDiscount(ctx context.Context, id uuid.UUID, req *model.UpdateDiscountRequest) (*model.Discount, error)
	UpdateDiscountStatus(ctx context.Context, id uuid.UUID, isActive bool) error
	DeleteDiscount(ctx context.Context, id uuid.UUID) error
	GetDiscountByID(ctx context.Context, id uuid.UUID) (*model.DiscountResponse, error)
	ListDiscounts(ctx context.Context, filter *model.ListDiscountsFilter) ([]model.DiscountResponse, int, error)
	GetUsageHistory(ctx context.Context, id uuid.UUID, filter *model.UsageHistoryFilter) (*model.UsageHistoryResponse, error)
	ExportUsage(ctx context.Context, id uuid.UUID) (*UsageExport, error)

	// Internal methods (checkout, worker)
	CandidateRules(ctx context.Context, codes []string) ([]model.Rule, error)
	InvalidateRuleCache(ctx context.Context)
	DeactivateExpired(ctx context.Context) (int, error)
}

type CheckoutServiceInterface interface {
	PreviewCart(ctx context.Context, req *model.PriceCartRequest) (*model.PricingResult, error)
	FinalizeOrder(ctx context.Context, req *model.FinalizeOrderRequest) (*model.PricingResult, error)
}

// -------------------------------------------------------------------
// DEPENDENCIES FROM OTHER DOMAINS (interfaces to avoid import cycles)
// -------------------------------------------------------------------

// ProductCatalog prices cart lines
type ProductCatalog interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalogModel.Product, error)
}

// SalesRuleSource provides the active sales promotions as rules
type SalesRuleSource interface {
	SalesRules(ctx context.Context) ([]model.Rule, error)
}

// CurrencyConverter gives the rate from the base currency to code
type CurrencyConverter interface {
	BaseCurrency() string
	Rate(ctx context.Context, code string) (decimal.Decimal, error)
}

// UsageExport is an xlsx workbook ready to be streamed
type UsageExport struct {
	Filename    string
	Content     []byte
	GeneratedAt time.Time
}
