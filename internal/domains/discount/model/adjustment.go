package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BonusItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Adjustment is the outcome of applying one rule (or the aggregate of several)
type Adjustment struct {
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	AffectedLineIDs []string        `json:"affected_line_ids"`
	FreeShipping    bool            `json:"free_shipping"`
	BonusItems      []BonusItem     `json:"bonus_items"`
}

// ZeroAdjustment is the "no discount" value
func ZeroAdjustment() Adjustment {
	return Adjustment{
		DiscountAmount:  decimal.Zero,
		AffectedLineIDs: []string{},
		BonusItems:      []BonusItem{},
	}
}

func (a Adjustment) IsZero() bool {
	return a.DiscountAmount.IsZero() && !a.FreeShipping && len(a.BonusItems) == 0
}

// Add merges b into a: amounts summed, line ids unioned in order, bonus quantities merged per product
func (a Adjustment) Add(b Adjustment) Adjustment {
	out := Adjustment{
		DiscountAmount:  a.DiscountAmount.Add(b.DiscountAmount),
		FreeShipping:    a.FreeShipping || b.FreeShipping,
		AffectedLineIDs: make([]string, 0, len(a.AffectedLineIDs)+len(b.AffectedLineIDs)),
		BonusItems:      make([]BonusItem, 0, len(a.BonusItems)+len(b.BonusItems)),
	}

	seen := make(map[string]struct{})
	for _, id := range append(append([]string{}, a.AffectedLineIDs...), b.AffectedLineIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.AffectedLineIDs = append(out.AffectedLineIDs, id)
	}

	index := make(map[uuid.UUID]int)
	for _, bonus := range append(append([]BonusItem{}, a.BonusItems...), b.BonusItems...) {
		if i, ok := index[bonus.ProductID]; ok {
			out.BonusItems[i].Quantity += bonus.Quantity
			continue
		}
		index[bonus.ProductID] = len(out.BonusItems)
		out.BonusItems = append(out.BonusItems, bonus)
	}

	return out
}

// AppliedRule is one entry of a selection, in application order
type AppliedRule struct {
	Rule       Rule         `json:"-"`
	RuleID     uuid.UUID    `json:"rule_id"`
	Source     RuleSource   `json:"source"`
	Code       string       `json:"code,omitempty"`
	Name       string       `json:"name"`
	Type       DiscountType `json:"type"`
	Adjustment Adjustment   `json:"adjustment"`
}

// Selection is the selector output
type Selection struct {
	Applied []AppliedRule `json:"applied"`
	Total   Adjustment    `json:"total"`

	// Ineffective: chosen rules whose stacked adjustment came to nothing.
	// They are not applied and never committed to the ledger.
	Ineffective []uuid.UUID `json:"-"`
}

func EmptySelection() Selection {
	return Selection{Applied: []AppliedRule{}, Total: ZeroAdjustment()}
}

func (s Selection) IsEmpty() bool {
	return len(s.Applied) == 0
}

func (s Selection) IsIneffective(id uuid.UUID) bool {
	for _, ineffective := range s.Ineffective {
		if ineffective == id {
			return true
		}
	}
	return false
}

// RuleIDs lists the chosen rules in order
func (s Selection) RuleIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Applied))
	for i, applied := range s.Applied {
		ids[i] = applied.RuleID
	}
	return ids
}
