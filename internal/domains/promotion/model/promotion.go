package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	discountModel "shopcms-backend/internal/domains/discount/model"
)

// PromotionType - visual placements and sales mechanics share one table
type PromotionType string

const (
	// Visual
	PromotionTypeBanner       PromotionType = "banner"
	PromotionTypePopup        PromotionType = "popup"
	PromotionTypeNotification PromotionType = "notification"
	PromotionTypeHomepage     PromotionType = "homepage"

	// Sales
	PromotionTypeBundle           PromotionType = "bundle"
	PromotionTypeBuyXGetY         PromotionType = "buy_x_get_y"
	PromotionTypeProductDiscount  PromotionType = "product_discount"
	PromotionTypeCategoryDiscount PromotionType = "category_discount"
	PromotionTypeCartDiscount     PromotionType = "cart_discount"
)

func (t PromotionType) IsValid() bool {
	return t.IsVisual() || t.IsSales()
}

// IsVisual: banners and friends never change a price
func (t PromotionType) IsVisual() bool {
	switch t {
	case PromotionTypeBanner, PromotionTypePopup, PromotionTypeNotification, PromotionTypeHomepage:
		return true
	}
	return false
}

func (t PromotionType) IsSales() bool {
	switch t {
	case PromotionTypeBundle, PromotionTypeBuyXGetY, PromotionTypeProductDiscount,
		PromotionTypeCategoryDiscount, PromotionTypeCartDiscount:
		return true
	}
	return false
}

// Promotion là chương trình khuyến mãi hiển thị trên storefront.
// Sales types are auto-applied at checkout, combinable, ordered by SortOrder.
type Promotion struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Type        PromotionType `json:"type"`

	// Visual
	ImageURL *string `json:"image_url,omitempty"`
	LinkURL  *string `json:"link_url,omitempty"`

	// Sales
	DiscountType  discountModel.DiscountType `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal            `json:"discount_value"`
	MinPurchase   decimal.Decimal            `json:"min_purchase"`
	ProductIDs    []uuid.UUID                `json:"product_ids,omitempty"`
	CategoryID    *uuid.UUID                 `json:"category_id,omitempty"`
	BuyQuantity   int                        `json:"buy_quantity,omitempty"`
	GetQuantity   int                        `json:"get_quantity,omitempty"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	SortOrder int        `json:"order"`
	IsActive  bool       `json:"is_active"`

	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (p *Promotion) schedule() discountModel.Schedule {
	return discountModel.Schedule{StartDate: p.StartDate, EndDate: p.EndDate}
}

// IsRunning: active and inside its window
func (p *Promotion) IsRunning(now time.Time) bool {
	return p.IsActive && p.DeletedAt == nil && p.schedule().Contains(now)
}

func (p *Promotion) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Rule maps a sales promotion to the rule evaluated at checkout.
// ok is false for visual types: they are never applicable to price computation.
func (p *Promotion) Rule() (discountModel.Rule, bool) {
	if !p.Type.IsSales() {
		return discountModel.Rule{}, false
	}

	rule := discountModel.Rule{
		ID:     p.ID,
		Source: discountModel.RuleSourcePromotion,
		Name:   p.Title,
		Target: discountModel.Targeting{AppliesTo: discountModel.AppliesToAll},
		Conditions: discountModel.Conditions{
			MinPurchase:         p.MinPurchase,
			CustomerEligibility: discountModel.CustomerEligibilityAll,
		},
		Schedule:   p.schedule(),
		Priority:   p.SortOrder,
		Active:     p.IsActive && !p.IsDeleted(),
		Combinable: true,
		AutoApply:  true,
	}

	switch p.Type {
	case PromotionTypeProductDiscount, PromotionTypeBundle:
		rule.Target = discountModel.Targeting{AppliesTo: discountModel.AppliesToProducts, IDs: p.ProductIDs}
	case PromotionTypeCategoryDiscount:
		var ids []uuid.UUID
		if p.CategoryID != nil {
			ids = []uuid.UUID{*p.CategoryID}
		}
		rule.Target = discountModel.Targeting{AppliesTo: discountModel.AppliesToCategories, IDs: ids}
	case PromotionTypeBuyXGetY:
		rule.Effect = discountModel.BuyXGetY{Buy: p.BuyQuantity, Get: p.GetQuantity}
		if len(p.ProductIDs) > 0 {
			rule.Target = discountModel.Targeting{AppliesTo: discountModel.AppliesToProducts, IDs: p.ProductIDs}
		}
		return rule, true
	}

	switch p.DiscountType {
	case discountModel.DiscountTypePercentage:
		rule.Effect = discountModel.PercentageOff{Percent: p.DiscountValue}
	case discountModel.DiscountTypeFixed:
		rule.Effect = discountModel.FixedOff{Amount: p.DiscountValue}
	}
	return rule, true
}
