package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// -------------------------------------------------------------------
// ADMIN REQUESTS
// -------------------------------------------------------------------

// CreateDiscountRequest - admin payload for a new discount
type CreateDiscountRequest struct {
	Code                string          `json:"code"`
	Name                string          `json:"name"`
	Description         *string         `json:"description"`
	Type                string          `json:"type"`
	Value               decimal.Decimal `json:"value"`
	MaxDiscount         decimal.Decimal `json:"max_discount"`
	MinPurchase         decimal.Decimal `json:"min_purchase"`
	MaxPurchase         decimal.Decimal `json:"max_purchase"`
	MinItems            int             `json:"min_items"`
	AppliesTo           string          `json:"applies_to"`
	TargetIDs           []uuid.UUID     `json:"target_ids"`
	CustomerEligibility string          `json:"customer_eligibility"`
	BuyQuantity         int             `json:"buy_quantity"`
	GetQuantity         int             `json:"get_quantity"`
	StartDate           *time.Time      `json:"start_date"`
	EndDate             *time.Time      `json:"end_date"`
	MaxUses             int             `json:"max_uses"`
	MaxUsesPerCustomer  int             `json:"max_uses_per_customer"`
	Priority            int             `json:"priority"`
	IsActive            *bool           `json:"is_active"`
	Combinable          bool            `json:"combinable"`
	AutoApply           bool            `json:"auto_apply"`
	FirstPurchaseOnly   bool            `json:"first_purchase_only"`
	ExcludeSaleItems    bool            `json:"exclude_sale_items"`
}

// Normalize upper-cases the code and fills enum defaults
func (r *CreateDiscountRequest) Normalize() {
	r.Code = NormalizeCode(r.Code)
	r.Name = strings.TrimSpace(r.Name)
	if r.AppliesTo == "" {
		r.AppliesTo = string(AppliesToAll)
	}
	if r.CustomerEligibility == "" {
		r.CustomerEligibility = string(CustomerEligibilityAll)
	}
}

// Validate checks field formats. Cross-field rules live in ValidateRule.
func (r CreateDiscountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.When(!r.AutoApply, validation.Required.Error("code is required unless the discount is auto-applied")),
			validation.Length(3, 50).Error("code must be 3-50 characters"),
			validation.Match(codePattern).Error("code may contain only letters, digits, '-' and '_'"),
		),
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(3, 200).Error("name must be 3-200 characters"),
		),
		validation.Field(&r.Description,
			validation.When(r.Description != nil,
				validation.Length(0, 1000).Error("description must not exceed 1000 characters"),
			),
		),
		validation.Field(&r.Type,
			validation.Required.Error("type is required"),
			validation.In("percentage", "fixed", "free_shipping", "buy_x_get_y").Error("type must be percentage, fixed, free_shipping or buy_x_get_y"),
		),
		validation.Field(&r.AppliesTo,
			validation.In("all", "products", "categories", "except_products").Error("applies_to must be all, products, categories or except_products"),
		),
		validation.Field(&r.CustomerEligibility,
			validation.In("all", "new", "returning", "vip").Error("customer_eligibility must be all, new, returning or vip"),
		),
		validation.Field(&r.MinItems, validation.Min(0).Error("min_items must be >= 0")),
		validation.Field(&r.MaxUses, validation.Min(0).Error("max_uses must be >= 0")),
		validation.Field(&r.MaxUsesPerCustomer, validation.Min(0).Error("max_uses_per_customer must be >= 0")),
	)
}

// ToDiscount builds the domain object. Call after Validate.
func (r CreateDiscountRequest) ToDiscount() (*Discount, error) {
	effect, err := EffectFromFields(DiscountType(r.Type), r.Value, r.MaxDiscount, r.BuyQuantity, r.GetQuantity)
	if err != nil {
		return nil, err
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return &Discount{
		Rule: Rule{
			Source: RuleSourceDiscount,
			Code:   r.Code,
			Name:   r.Name,
			Effect: effect,
			Target: Targeting{
				AppliesTo: AppliesTo(r.AppliesTo),
				IDs:       r.TargetIDs,
			},
			Conditions: Conditions{
				MinPurchase:         r.MinPurchase,
				MaxPurchase:         r.MaxPurchase,
				MinItems:            r.MinItems,
				CustomerEligibility: CustomerEligibility(r.CustomerEligibility),
				FirstPurchaseOnly:   r.FirstPurchaseOnly,
				ExcludeSaleItems:    r.ExcludeSaleItems,
			},
			Schedule: Schedule{StartDate: r.StartDate, EndDate: r.EndDate},
			Limits: Limits{
				MaxUses:            r.MaxUses,
				MaxUsesPerCustomer: r.MaxUsesPerCustomer,
			},
			Priority:   r.Priority,
			Active:     active,
			Combinable: r.Combinable,
			AutoApply:  r.AutoApply,
		},
		Description: r.Description,
		Version:     1,
	}, nil
}

// UpdateDiscountRequest - partial update, nil fields are left unchanged.
// Version is required for optimistic locking.
type UpdateDiscountRequest struct {
	Code                *string          `json:"code"`
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	Type                *string          `json:"type"`
	Value               *decimal.Decimal `json:"value"`
	MaxDiscount         *decimal.Decimal `json:"max_discount"`
	MinPurchase         *decimal.Decimal `json:"min_purchase"`
	MaxPurchase         *decimal.Decimal `json:"max_purchase"`
	MinItems            *int             `json:"min_items"`
	AppliesTo           *string          `json:"applies_to"`
	TargetIDs           *[]uuid.UUID     `json:"target_ids"`
	CustomerEligibility *string          `json:"customer_eligibility"`
	BuyQuantity         *int             `json:"buy_quantity"`
	GetQuantity         *int             `json:"get_quantity"`
	StartDate           *time.Time       `json:"start_date"`
	EndDate             *time.Time       `json:"end_date"`
	ClearStartDate      bool             `json:"clear_start_date"` // start_date = NULL (bắt đầu ngay)
	ClearEndDate        bool             `json:"clear_end_date"`   // end_date = NULL (không hết hạn)
	MaxUses             *int             `json:"max_uses"`
	MaxUsesPerCustomer  *int             `json:"max_uses_per_customer"`
	Priority            *int             `json:"priority"`
	IsActive            *bool            `json:"is_active"`
	Combinable          *bool            `json:"combinable"`
	AutoApply           *bool            `json:"auto_apply"`
	FirstPurchaseOnly   *bool            `json:"first_purchase_only"`
	ExcludeSaleItems    *bool            `json:"exclude_sale_items"`
	Version             int              `json:"version"`
}

func (r UpdateDiscountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.When(r.Code != nil,
				validation.Length(3, 50).Error("code must be 3-50 characters"),
				validation.By(func(value interface{}) error {
					if !codePattern.MatchString(NormalizeCode(*r.Code)) {
						return errors.New("code may contain only letters, digits, '-' and '_'")
					}
					return nil
				}),
			),
		),
		validation.Field(&r.Name,
			validation.When(r.Name != nil, validation.Length(3, 200).Error("name must be 3-200 characters")),
		),
		validation.Field(&r.Description,
			validation.When(r.Description != nil, validation.Length(0, 1000).Error("description must not exceed 1000 characters")),
		),
		validation.Field(&r.Type,
			validation.When(r.Type != nil,
				validation.In("percentage", "fixed", "free_shipping", "buy_x_get_y").Error("type must be percentage, fixed, free_shipping or buy_x_get_y"),
			),
		),
		validation.Field(&r.AppliesTo,
			validation.When(r.AppliesTo != nil,
				validation.In("all", "products", "categories", "except_products").Error("applies_to must be all, products, categories or except_products"),
			),
		),
		validation.Field(&r.CustomerEligibility,
			validation.When(r.CustomerEligibility != nil,
				validation.In("all", "new", "returning", "vip").Error("customer_eligibility must be all, new, returning or vip"),
			),
		),
		validation.Field(&r.StartDate, validation.When(r.ClearStartDate, validation.Nil.Error("start_date cannot be set together with clear_start_date"))),
		validation.Field(&r.EndDate, validation.When(r.ClearEndDate, validation.Nil.Error("end_date cannot be set together with clear_end_date"))),
		validation.Field(&r.MinItems, validation.When(r.MinItems != nil, validation.Min(0).Error("min_items must be >= 0"))),
		validation.Field(&r.MaxUses, validation.When(r.MaxUses != nil, validation.Min(0).Error("max_uses must be >= 0"))),
		validation.Field(&r.MaxUsesPerCustomer, validation.When(r.MaxUsesPerCustomer != nil, validation.Min(0).Error("max_uses_per_customer must be >= 0"))),
		validation.Field(&r.Version, validation.Required.Error("version is required"), validation.Min(1)),
	)
}

// HasRuleChanges reports whether the request touches a field frozen after first use
func (r UpdateDiscountRequest) HasRuleChanges(d *Discount) []string {
	var frozen []string

	if r.Code != nil && NormalizeCode(*r.Code) != d.Code {
		frozen = append(frozen, "code")
	}
	if r.Type != nil && DiscountType(*r.Type) != d.Type() {
		frozen = append(frozen, "type")
	}
	if r.Value != nil {
		_, value, _, _, _ := EffectFields(d.Effect)
		if !r.Value.Equal(value) {
			frozen = append(frozen, "value")
		}
	}
	if r.AppliesTo != nil && AppliesTo(*r.AppliesTo) != d.Target.AppliesTo {
		frozen = append(frozen, "applies_to")
	}
	if r.TargetIDs != nil && !sameIDs(*r.TargetIDs, d.Target.IDs) {
		frozen = append(frozen, "target_ids")
	}
	if r.BuyQuantity != nil || r.GetQuantity != nil {
		_, _, _, buy, get := EffectFields(d.Effect)
		if (r.BuyQuantity != nil && *r.BuyQuantity != buy) || (r.GetQuantity != nil && *r.GetQuantity != get) {
			frozen = append(frozen, "buy_get_quantity")
		}
	}

	return frozen
}

// ApplyTo merges the request into a copy of d
func (r UpdateDiscountRequest) ApplyTo(d *Discount) (*Discount, error) {
	updated := *d
	updated.Target.IDs = append([]uuid.UUID(nil), d.Target.IDs...)

	t, value, maxDiscount, buy, get := EffectFields(d.Effect)
	if r.Type != nil {
		t = DiscountType(*r.Type)
	}
	if r.Value != nil {
		value = *r.Value
	}
	if r.MaxDiscount != nil {
		maxDiscount = *r.MaxDiscount
	}
	if r.BuyQuantity != nil {
		buy = *r.BuyQuantity
	}
	if r.GetQuantity != nil {
		get = *r.GetQuantity
	}
	effect, err := EffectFromFields(t, value, maxDiscount, buy, get)
	if err != nil {
		return nil, err
	}
	updated.Effect = effect

	if r.Code != nil {
		updated.Code = NormalizeCode(*r.Code)
	}
	if r.Name != nil {
		updated.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		updated.Description = r.Description
	}
	if r.MinPurchase != nil {
		updated.Conditions.MinPurchase = *r.MinPurchase
	}
	if r.MaxPurchase != nil {
		updated.Conditions.MaxPurchase = *r.MaxPurchase
	}
	if r.MinItems != nil {
		updated.Conditions.MinItems = *r.MinItems
	}
	if r.AppliesTo != nil {
		updated.Target.AppliesTo = AppliesTo(*r.AppliesTo)
	}
	if r.TargetIDs != nil {
		updated.Target.IDs = *r.TargetIDs
	}
	if r.CustomerEligibility != nil {
		updated.Conditions.CustomerEligibility = CustomerEligibility(*r.CustomerEligibility)
	}
	if r.StartDate != nil {
		updated.Schedule.StartDate = r.StartDate
	}
	if r.ClearStartDate {
		updated.Schedule.StartDate = nil
	}
	if r.EndDate != nil {
		updated.Schedule.EndDate = r.EndDate
	}
	if r.ClearEndDate {
		updated.Schedule.EndDate = nil
	}
	if r.MaxUses != nil {
		updated.Limits.MaxUses = *r.MaxUses
	}
	if r.MaxUsesPerCustomer != nil {
		updated.Limits.MaxUsesPerCustomer = *r.MaxUsesPerCustomer
	}
	if r.Priority != nil {
		updated.Priority = *r.Priority
	}
	if r.IsActive != nil {
		updated.Active = *r.IsActive
	}
	if r.Combinable != nil {
		updated.Combinable = *r.Combinable
	}
	if r.AutoApply != nil {
		updated.AutoApply = *r.AutoApply
	}
	if r.FirstPurchaseOnly != nil {
		updated.Conditions.FirstPurchaseOnly = *r.FirstPurchaseOnly
	}
	if r.ExcludeSaleItems != nil {
		updated.Conditions.ExcludeSaleItems = *r.ExcludeSaleItems
	}

	updated.Version = r.Version
	return &updated, nil
}

// UpdateStatusRequest - PATCH /admin/discounts/:id/status
type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsActive, validation.NotNil.Error("is_active is required")),
	)
}

// -------------------------------------------------------------------
// RULE CONSISTENCY
// -------------------------------------------------------------------

// ValidateRule checks the cross-field invariants of a discount.
// Violations are InvalidRule errors rendered per field.
func ValidateRule(d *Discount) error {
	errs := validation.Errors{}
	hundred := decimal.NewFromInt(100)

	switch e := d.Effect.(type) {
	case PercentageOff:
		if !e.Percent.IsPositive() || e.Percent.GreaterThan(hundred) {
			errs["value"] = errors.New("percentage value must be greater than 0 and at most 100")
		}
		if e.MaxDiscount.IsNegative() {
			errs["max_discount"] = errors.New("max_discount must be >= 0")
		}
	case FixedOff:
		if !e.Amount.IsPositive() {
			errs["value"] = errors.New("fixed value must be greater than 0")
		}
		if e.MaxDiscount.IsNegative() {
			errs["max_discount"] = errors.New("max_discount must be >= 0")
		}
	case BuyXGetY:
		if e.Buy < 1 {
			errs["buy_quantity"] = errors.New("buy_quantity must be at least 1")
		}
		if e.Get < 1 {
			errs["get_quantity"] = errors.New("get_quantity must be at least 1")
		}
		if e.MaxDiscount.IsNegative() {
			errs["max_discount"] = errors.New("max_discount must be >= 0")
		}
	case FreeShipping:
	default:
		errs["type"] = ErrInvalidDiscountType
	}

	if d.Conditions.MinPurchase.IsNegative() {
		errs["min_purchase"] = errors.New("min_purchase must be >= 0")
	}
	if d.Conditions.MaxPurchase.IsNegative() {
		errs["max_purchase"] = errors.New("max_purchase must be >= 0")
	} else if d.Conditions.MaxPurchase.IsPositive() && d.Conditions.MaxPurchase.LessThan(d.Conditions.MinPurchase) {
		errs["max_purchase"] = errors.New("max_purchase must be >= min_purchase")
	}

	if d.Target.AppliesTo != AppliesToAll && len(d.Target.IDs) == 0 {
		errs["target_ids"] = errors.New("target_ids is required when applies_to is not 'all'")
	}

	if d.Schedule.StartDate != nil && d.Schedule.EndDate != nil && !d.Schedule.EndDate.After(*d.Schedule.StartDate) {
		errs["end_date"] = errors.New("end_date must be after start_date")
	}

	if d.Conditions.FirstPurchaseOnly && d.Conditions.CustomerEligibility == CustomerEligibilityReturning {
		errs["first_purchase_only"] = errors.New("first_purchase_only cannot be combined with returning customers")
	}

	if d.Limits.MaxUses > 0 && d.Limits.MaxUsesPerCustomer > d.Limits.MaxUses {
		errs["max_uses_per_customer"] = errors.New("max_uses_per_customer cannot exceed max_uses")
	}

	if !d.AutoApply && d.Code == "" {
		errs["code"] = errors.New("code is required unless the discount is auto-applied")
	}

	return errs.Filter()
}

// -------------------------------------------------------------------
// FILTERS
// -------------------------------------------------------------------

type ListDiscountsFilter struct {
	Status    string `form:"status"`
	Type      string `form:"type"`
	Search    string `form:"search"`
	AutoApply *bool  `form:"auto_apply"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

func (f *ListDiscountsFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	f.Search = strings.TrimSpace(f.Search)
}

func (f ListDiscountsFilter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Status, validation.In("active", "inactive", "upcoming", "expired", "exhausted")),
		validation.Field(&f.Type, validation.In("percentage", "fixed", "free_shipping", "buy_x_get_y")),
		validation.Field(&f.SortBy, validation.In("created_at", "priority", "code", "used_count", "end_date")),
		validation.Field(&f.SortOrder, validation.In("asc", "desc")),
	)
}

func (f ListDiscountsFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches applies the filter in memory (json storage)
func (f ListDiscountsFilter) Matches(d *Discount, now time.Time) bool {
	if d.IsDeleted() {
		return false
	}
	if f.Status != "" && string(d.Status(now)) != f.Status {
		return false
	}
	if f.Type != "" && string(d.Type()) != f.Type {
		return false
	}
	if f.AutoApply != nil && d.AutoApply != *f.AutoApply {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(d.Code), needle) && !strings.Contains(strings.ToLower(d.Name), needle) {
			return false
		}
	}
	return true
}

type UsageHistoryFilter struct {
	Page  int        `form:"page"`
	Limit int        `form:"limit"`
	From  *time.Time `form:"from" time_format:"2006-01-02"`
	To    *time.Time `form:"to" time_format:"2006-01-02"`
}

func (f *UsageHistoryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 50
	}
}

func (f UsageHistoryFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// -------------------------------------------------------------------
// RESPONSES
// -------------------------------------------------------------------

// DiscountResponse - admin view of a discount
type DiscountResponse struct {
	DiscountRecord
	Status        DiscountStatus `json:"status"`
	RemainingUses *int           `json:"remaining_uses"`
	Stats         *UsageStats    `json:"stats,omitempty"`
}

func ToDiscountResponse(d *Discount, now time.Time) DiscountResponse {
	return DiscountResponse{
		DiscountRecord: d.ToRecord(),
		Status:         d.Status(now),
		RemainingUses:  d.RemainingUses(),
	}
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[uuid.UUID]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

// UsageHistoryResponse - GET /admin/discounts/:id/usage
type UsageHistoryResponse struct {
	DiscountID uuid.UUID        `json:"discount_id"`
	Code       string           `json:"code"`
	Usages     []*DiscountUsage `json:"usages"`
	Stats      *UsageStats      `json:"stats"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}
