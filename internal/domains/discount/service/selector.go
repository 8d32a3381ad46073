package service

import (
	"bytes"
	"sort"

	"shopcms-backend/internal/domains/discount/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Selector chooses the applicable set of rules for a cart and stacks their effects
type Selector struct {
	evaluator  *EligibilityEvaluator
	calculator *DiscountCalculator
}

func NewSelector(evaluator *EligibilityEvaluator, calculator *DiscountCalculator) *Selector {
	return &Selector{evaluator: evaluator, calculator: calculator}
}

// Candidates builds the pool: auto-apply rules plus rules whose code was entered.
// A rule appears at most once.
func (s *Selector) Candidates(rules []model.Rule, codes []string) []model.Rule {
	pool := make([]model.Rule, 0, len(rules))
	seen := make(map[uuid.UUID]struct{}, len(rules))

	for _, rule := range rules {
		if _, ok := seen[rule.ID]; ok {
			continue
		}
		if rule.AutoApply || matchesAnyCode(&rule, codes) {
			seen[rule.ID] = struct{}{}
			pool = append(pool, rule)
		}
	}
	return pool
}

// Select returns the ordered rules to apply with their adjustments.
//
// Business Logic:
//  1. pool = auto-apply rules ∪ rules matching an entered code
//  2. keep eligible rules only
//  3. order by priority desc, start_date asc (no start = earliest), id asc
//  4. take the first rule; stop when it is not combinable
//  5. afterwards take only combinable rules, skipping the others
//  6. apply sequentially, each rule seeing line totals reduced by the previous ones
//  7. drop rules whose adjustment comes to zero so a code is never spent for nothing
//
// Select is deterministic: the same cart and rules always give the same result.
func (s *Selector) Select(cart *model.Cart, rules []model.Rule, codes []string) model.Selection {
	var eligible []model.Rule
	for _, rule := range s.Candidates(rules, codes) {
		rule := rule
		if s.evaluator.IsEligible(&rule, cart) {
			eligible = append(eligible, rule)
		}
	}
	if len(eligible) == 0 {
		return model.EmptySelection()
	}

	SortRules(eligible)
	return s.applySequentially(cart, pickCombinable(eligible))
}

// SortRules orders rules by priority desc, start_date asc, id asc
func SortRules(rules []model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]

		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}

		aStart, bStart := a.Schedule.StartDate, b.Schedule.StartDate
		switch {
		case aStart == nil && bStart != nil:
			return true
		case aStart != nil && bStart == nil:
			return false
		case aStart != nil && bStart != nil && !aStart.Equal(*bStart):
			return aStart.Before(*bStart)
		}

		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// pickCombinable: the first rule is always taken; later rules only when
// every chosen rule, themselves included, is combinable
func pickCombinable(sorted []model.Rule) []model.Rule {
	chosen := []model.Rule{sorted[0]}
	if !sorted[0].Combinable {
		return chosen
	}

	for _, rule := range sorted[1:] {
		if !rule.Combinable {
			continue
		}
		chosen = append(chosen, rule)
	}
	return chosen
}

func (s *Selector) applySequentially(cart *model.Cart, rules []model.Rule) model.Selection {
	working := cart.Clone()
	selection := model.EmptySelection()

	for _, rule := range rules {
		rule := rule
		adjustment := s.calculator.Apply(&rule, &working)
		if adjustment.IsZero() {
			selection.Ineffective = append(selection.Ineffective, rule.ID)
			continue
		}
		allocate(&working, adjustment)

		selection.Applied = append(selection.Applied, model.AppliedRule{
			Rule:       rule,
			RuleID:     rule.ID,
			Source:     rule.Source,
			Code:       rule.Code,
			Name:       rule.Name,
			Type:       rule.Type(),
			Adjustment: adjustment,
		})
		selection.Total = selection.Total.Add(adjustment)
	}

	return selection
}

// allocate spreads an adjustment's amount over its affected lines, pro rata to
// their open totals. The last line absorbs the rounding remainder.
// Affected lines are marked as already discounted for later rules.
func allocate(cart *model.Cart, adjustment model.Adjustment) {
	if len(adjustment.AffectedLineIDs) == 0 {
		return
	}

	affected := make(map[string]struct{}, len(adjustment.AffectedLineIDs))
	for _, id := range adjustment.AffectedLineIDs {
		affected[id] = struct{}{}
	}

	var indexes []int
	base := decimal.Zero
	for i, line := range cart.Items {
		if _, ok := affected[line.LineID]; ok {
			indexes = append(indexes, i)
			base = base.Add(line.Total())
		}
	}

	remaining := adjustment.DiscountAmount
	for n, i := range indexes {
		line := &cart.Items[i]
		line.AlreadyDiscounted = true

		if base.IsZero() || remaining.IsZero() {
			continue
		}

		share := remaining
		if n < len(indexes)-1 {
			share = adjustment.DiscountAmount.Mul(line.Total()).Div(base).Round(2)
			if share.GreaterThan(remaining) {
				share = remaining
			}
		}
		if share.GreaterThan(line.Total()) {
			share = line.Total()
		}

		line.PriorDiscount = line.PriorDiscount.Add(share)
		remaining = remaining.Sub(share)
	}
}

func matchesAnyCode(rule *model.Rule, codes []string) bool {
	for _, code := range codes {
		if rule.MatchesCode(code) {
			return true
		}
	}
	return false
}
