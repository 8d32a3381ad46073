package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Discount is the admin-managed rule record (code based or auto-apply)
type Discount struct {
	Rule
	Description *string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

type DiscountStatus string

const (
	DiscountStatusActive    DiscountStatus = "active"
	DiscountStatusInactive  DiscountStatus = "inactive"
	DiscountStatusUpcoming  DiscountStatus = "upcoming"
	DiscountStatusExpired   DiscountStatus = "expired"
	DiscountStatusExhausted DiscountStatus = "exhausted"
)

// Status derives the admin-facing state at now
func (d *Discount) Status(now time.Time) DiscountStatus {
	switch {
	case !d.Active:
		return DiscountStatusInactive
	case d.Schedule.Ended(now):
		return DiscountStatusExpired
	case !d.Schedule.Started(now):
		return DiscountStatusUpcoming
	case d.Limits.Exhausted():
		return DiscountStatusExhausted
	}
	return DiscountStatusActive
}

func (d *Discount) IsDeleted() bool {
	return d.DeletedAt != nil
}

// CanBeDeleted: only rules that were never redeemed
func (d *Discount) CanBeDeleted() bool {
	return d.Limits.UsedCount == 0
}

// RemainingUses returns nil when the rule is uncapped
func (d *Discount) RemainingUses() *int {
	if d.Limits.MaxUses == 0 {
		return nil
	}
	remaining := d.Limits.MaxUses - d.Limits.UsedCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// -------------------------------------------------------------------
// FLAT RECORD (JSON storage, cache and API)
// -------------------------------------------------------------------

// DiscountRecord is the flat wire/storage shape of a Discount
type DiscountRecord struct {
	ID                  uuid.UUID           `json:"id"`
	Code                string              `json:"code"`
	Name                string              `json:"name"`
	Description         *string             `json:"description,omitempty"`
	Type                DiscountType        `json:"type"`
	Value               decimal.Decimal     `json:"value"`
	MaxDiscount         decimal.Decimal     `json:"max_discount"`
	MinPurchase         decimal.Decimal     `json:"min_purchase"`
	MaxPurchase         decimal.Decimal     `json:"max_purchase"`
	MinItems            int                 `json:"min_items"`
	AppliesTo           AppliesTo           `json:"applies_to"`
	TargetIDs           []uuid.UUID         `json:"target_ids"`
	CustomerEligibility CustomerEligibility `json:"customer_eligibility"`
	BuyQuantity         int                 `json:"buy_quantity"`
	GetQuantity         int                 `json:"get_quantity"`
	StartDate           *time.Time          `json:"start_date"`
	EndDate             *time.Time          `json:"end_date"`
	MaxUses             int                 `json:"max_uses"`
	MaxUsesPerCustomer  int                 `json:"max_uses_per_customer"`
	UsedCount           int                 `json:"used_count"`
	Priority            int                 `json:"priority"`
	IsActive            bool                `json:"is_active"`
	Combinable          bool                `json:"combinable"`
	AutoApply           bool                `json:"auto_apply"`
	FirstPurchaseOnly   bool                `json:"first_purchase_only"`
	ExcludeSaleItems    bool                `json:"exclude_sale_items"`
	Version             int                 `json:"version"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	DeletedAt           *time.Time          `json:"deleted_at,omitempty"`
}

func (d *Discount) ToRecord() DiscountRecord {
	t, value, maxDiscount, buy, get := EffectFields(d.Effect)

	targets := d.Target.IDs
	if targets == nil {
		targets = []uuid.UUID{}
	}

	return DiscountRecord{
		ID:                  d.ID,
		Code:                d.Code,
		Name:                d.Name,
		Description:         d.Description,
		Type:                t,
		Value:               value,
		MaxDiscount:         maxDiscount,
		MinPurchase:         d.Conditions.MinPurchase,
		MaxPurchase:         d.Conditions.MaxPurchase,
		MinItems:            d.Conditions.MinItems,
		AppliesTo:           d.Target.AppliesTo,
		TargetIDs:           targets,
		CustomerEligibility: d.Conditions.CustomerEligibility,
		BuyQuantity:         buy,
		GetQuantity:         get,
		StartDate:           d.Schedule.StartDate,
		EndDate:             d.Schedule.EndDate,
		MaxUses:             d.Limits.MaxUses,
		MaxUsesPerCustomer:  d.Limits.MaxUsesPerCustomer,
		UsedCount:           d.Limits.UsedCount,
		Priority:            d.Priority,
		IsActive:            d.Active,
		Combinable:          d.Combinable,
		AutoApply:           d.AutoApply,
		FirstPurchaseOnly:   d.Conditions.FirstPurchaseOnly,
		ExcludeSaleItems:    d.Conditions.ExcludeSaleItems,
		Version:             d.Version,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		DeletedAt:           d.DeletedAt,
	}
}

// ToDiscount converts the flat record back, rebuilding the Effect variant
func (r DiscountRecord) ToDiscount() (*Discount, error) {
	effect, err := EffectFromFields(r.Type, r.Value, r.MaxDiscount, r.BuyQuantity, r.GetQuantity)
	if err != nil {
		return nil, err
	}

	return &Discount{
		Rule: Rule{
			ID:     r.ID,
			Source: RuleSourceDiscount,
			Code:   r.Code,
			Name:   r.Name,
			Effect: effect,
			Target: Targeting{
				AppliesTo: r.AppliesTo,
				IDs:       r.TargetIDs,
			},
			Conditions: Conditions{
				MinPurchase:         r.MinPurchase,
				MaxPurchase:         r.MaxPurchase,
				MinItems:            r.MinItems,
				CustomerEligibility: r.CustomerEligibility,
				FirstPurchaseOnly:   r.FirstPurchaseOnly,
				ExcludeSaleItems:    r.ExcludeSaleItems,
			},
			Schedule: Schedule{
				StartDate: r.StartDate,
				EndDate:   r.EndDate,
			},
			Limits: Limits{
				MaxUses:            r.MaxUses,
				MaxUsesPerCustomer: r.MaxUsesPerCustomer,
				UsedCount:          r.UsedCount,
			},
			Priority:   r.Priority,
			Active:     r.IsActive,
			Combinable: r.Combinable,
			AutoApply:  r.AutoApply,
		},
		Description: r.Description,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
	}, nil
}

func (d Discount) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToRecord())
}

func (d *Discount) UnmarshalJSON(data []byte) error {
	var record DiscountRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	decoded, err := record.ToDiscount()
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}
