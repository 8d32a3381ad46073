package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -------------------------------------------------------------------
// ENUMS
// -------------------------------------------------------------------

type DiscountType string

const (
	DiscountTypePercentage   DiscountType = "percentage"
	DiscountTypeFixed        DiscountType = "fixed"
	DiscountTypeFreeShipping DiscountType = "free_shipping"
	DiscountTypeBuyXGetY     DiscountType = "buy_x_get_y"
)

func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed, DiscountTypeFreeShipping, DiscountTypeBuyXGetY:
		return true
	}
	return false
}

type AppliesTo string

const (
	AppliesToAll            AppliesTo = "all"
	AppliesToProducts       AppliesTo = "products"
	AppliesToCategories     AppliesTo = "categories"
	AppliesToExceptProducts AppliesTo = "except_products"
)

func (a AppliesTo) IsValid() bool {
	switch a {
	case AppliesToAll, AppliesToProducts, AppliesToCategories, AppliesToExceptProducts:
		return true
	}
	return false
}

type CustomerEligibility string

const (
	CustomerEligibilityAll       CustomerEligibility = "all"
	CustomerEligibilityNew       CustomerEligibility = "new"
	CustomerEligibilityReturning CustomerEligibility = "returning"
	CustomerEligibilityVIP       CustomerEligibility = "vip"
)

func (c CustomerEligibility) IsValid() bool {
	switch c {
	case CustomerEligibilityAll, CustomerEligibilityNew, CustomerEligibilityReturning, CustomerEligibilityVIP:
		return true
	}
	return false
}

// RuleSource tells where a Rule came from. Only discounts carry usage counters.
type RuleSource string

const (
	RuleSourceDiscount  RuleSource = "discount"
	RuleSourcePromotion RuleSource = "promotion"
)

// -------------------------------------------------------------------
// EFFECT (tagged union)
// -------------------------------------------------------------------

// Effect is the monetary effect of a rule.
// Variants: PercentageOff, FixedOff, FreeShipping, BuyXGetY.
type Effect interface {
	Type() DiscountType
	isEffect()
}

// PercentageOff takes Percent % off the targeted subtotal. MaxDiscount 0 = uncapped.
type PercentageOff struct {
	Percent     decimal.Decimal
	MaxDiscount decimal.Decimal
}

// FixedOff takes a fixed Amount off, never more than the targeted subtotal.
type FixedOff struct {
	Amount      decimal.Decimal
	MaxDiscount decimal.Decimal
}

type FreeShipping struct{}

// BuyXGetY gives Get free units for every full group of Buy+Get units of a product.
type BuyXGetY struct {
	Buy         int
	Get         int
	MaxDiscount decimal.Decimal
}

func (PercentageOff) Type() DiscountType { return DiscountTypePercentage }
func (FixedOff) Type() DiscountType      { return DiscountTypeFixed }
func (FreeShipping) Type() DiscountType  { return DiscountTypeFreeShipping }
func (BuyXGetY) Type() DiscountType      { return DiscountTypeBuyXGetY }

func (PercentageOff) isEffect() {}
func (FixedOff) isEffect()      {}
func (FreeShipping) isEffect()  {}
func (BuyXGetY) isEffect()      {}

// EffectFromFields builds the Effect variant from its flat storage representation
func EffectFromFields(t DiscountType, value, maxDiscount decimal.Decimal, buy, get int) (Effect, error) {
	switch t {
	case DiscountTypePercentage:
		return PercentageOff{Percent: value, MaxDiscount: maxDiscount}, nil
	case DiscountTypeFixed:
		return FixedOff{Amount: value, MaxDiscount: maxDiscount}, nil
	case DiscountTypeFreeShipping:
		return FreeShipping{}, nil
	case DiscountTypeBuyXGetY:
		return BuyXGetY{Buy: buy, Get: get, MaxDiscount: maxDiscount}, nil
	}
	return nil, ErrInvalidDiscountType
}

// EffectFields is the inverse of EffectFromFields
func EffectFields(e Effect) (t DiscountType, value, maxDiscount decimal.Decimal, buy, get int) {
	switch v := e.(type) {
	case PercentageOff:
		return DiscountTypePercentage, v.Percent, v.MaxDiscount, 0, 0
	case FixedOff:
		return DiscountTypeFixed, v.Amount, v.MaxDiscount, 0, 0
	case FreeShipping:
		return DiscountTypeFreeShipping, decimal.Zero, decimal.Zero, 0, 0
	case BuyXGetY:
		return DiscountTypeBuyXGetY, decimal.Zero, v.MaxDiscount, v.Buy, v.Get
	}
	return "", decimal.Zero, decimal.Zero, 0, 0
}

// -------------------------------------------------------------------
// RULE
// -------------------------------------------------------------------

// Targeting selects the cart lines a rule acts on
type Targeting struct {
	AppliesTo AppliesTo
	IDs       []uuid.UUID
}

// Matches reports whether a single line is targeted
func (t Targeting) Matches(line LineItem) bool {
	switch t.AppliesTo {
	case AppliesToAll, "":
		return true
	case AppliesToProducts:
		return containsID(t.IDs, line.ProductID)
	case AppliesToCategories:
		return containsID(t.IDs, line.CategoryID)
	case AppliesToExceptProducts:
		return !containsID(t.IDs, line.ProductID)
	}
	return false
}

type Conditions struct {
	MinPurchase         decimal.Decimal
	MaxPurchase         decimal.Decimal // 0 = unlimited
	MinItems            int
	CustomerEligibility CustomerEligibility
	FirstPurchaseOnly   bool
	ExcludeSaleItems    bool
}

// Schedule is the validity window. Nil bounds are open.
type Schedule struct {
	StartDate *time.Time
	EndDate   *time.Time
}

func (s Schedule) Started(now time.Time) bool {
	return s.StartDate == nil || !now.Before(*s.StartDate)
}

func (s Schedule) Ended(now time.Time) bool {
	return s.EndDate != nil && now.After(*s.EndDate)
}

func (s Schedule) Contains(now time.Time) bool {
	return s.Started(now) && !s.Ended(now)
}

// Limits: 0 means unlimited for both caps
type Limits struct {
	MaxUses            int
	MaxUsesPerCustomer int
	UsedCount          int
}

func (l Limits) Exhausted() bool {
	return l.MaxUses > 0 && l.UsedCount >= l.MaxUses
}

// Rule is the evaluation view shared by discounts and sales promotions
type Rule struct {
	ID         uuid.UUID
	Source     RuleSource
	Code       string
	Name       string
	Effect     Effect
	Target     Targeting
	Conditions Conditions
	Schedule   Schedule
	Limits     Limits
	Priority   int
	Active     bool
	Combinable bool
	AutoApply  bool
}

func (r *Rule) Type() DiscountType {
	if r.Effect == nil {
		return ""
	}
	return r.Effect.Type()
}

// IsCurrentlyUsable: active, inside the schedule window and below the global cap
func (r *Rule) IsCurrentlyUsable(now time.Time) bool {
	return r.Active && r.Schedule.Contains(now) && !r.Limits.Exhausted()
}

// MatchesCode compares the rule code with user input, case-insensitively
func (r *Rule) MatchesCode(input string) bool {
	return r.Code != "" && strings.EqualFold(strings.TrimSpace(input), r.Code)
}

// HasCounters reports whether redemptions of this rule are recorded by the ledger
func (r *Rule) HasCounters() bool {
	return r.Source != RuleSourcePromotion
}

// NormalizeCode trims and upper-cases a discount code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
