package service

import (
	"time"

	"shopcms-backend/internal/domains/discount/model"
)

// Clock returns the current time. Injected so evaluation is reproducible in tests.
type Clock func() time.Time

// EligibilityEvaluator decides whether a rule may apply to a cart.
// It is pure: no I/O, no mutation, never an error.
type EligibilityEvaluator struct {
	now Clock
}

func NewEligibilityEvaluator(now Clock) *EligibilityEvaluator {
	if now == nil {
		now = time.Now
	}
	return &EligibilityEvaluator{now: now}
}

// IsEligible reports whether every eligibility check passes
func (e *EligibilityEvaluator) IsEligible(rule *model.Rule, cart *model.Cart) bool {
	ok, _ := e.Check(rule, cart)
	return ok
}

// Check - like IsEligible, but also names the first failed check.
//
// Order of checks:
//  1. the rule has a monetary effect and is active
//  2. now is inside [start_date, end_date]
//  3. global usage cap
//  4. min_purchase <= subtotal <= max_purchase (0 = no upper bound)
//  5. unit count >= min_items
//  6. targeting matches at least one line
//  7. customer segment, first purchase only
//  8. per-customer cap
func (e *EligibilityEvaluator) Check(rule *model.Rule, cart *model.Cart) (bool, model.IneligibleReason) {
	if rule == nil || rule.Effect == nil {
		return false, model.ReasonNoEffect
	}
	if !rule.Active {
		return false, model.ReasonInactive
	}

	now := e.now()
	if !rule.Schedule.Started(now) {
		return false, model.ReasonNotStarted
	}
	if rule.Schedule.Ended(now) {
		return false, model.ReasonExpired
	}

	if rule.Limits.Exhausted() {
		return false, model.ReasonUsageLimit
	}

	cond := rule.Conditions
	if cart.Subtotal.LessThan(cond.MinPurchase) {
		return false, model.ReasonBelowMinPurchase
	}
	if cond.MaxPurchase.IsPositive() && cart.Subtotal.GreaterThan(cond.MaxPurchase) {
		return false, model.ReasonAboveMaxPurchase
	}

	if cart.ItemCount() < cond.MinItems {
		return false, model.ReasonTooFewItems
	}

	if !e.targetsAnyLine(rule, cart) {
		return false, model.ReasonNotApplicable
	}

	if !customerMatches(cond.CustomerEligibility, cart.Customer) {
		return false, model.ReasonCustomerNotEligible
	}
	if cond.FirstPurchaseOnly && !cart.Customer.IsNew {
		return false, model.ReasonFirstPurchaseOnly
	}

	if rule.Limits.MaxUsesPerCustomer > 0 &&
		cart.Customer.RedemptionsOf(rule.ID) >= rule.Limits.MaxUsesPerCustomer {
		return false, model.ReasonCustomerLimit
	}

	return true, model.ReasonNone
}

func (e *EligibilityEvaluator) targetsAnyLine(rule *model.Rule, cart *model.Cart) bool {
	if rule.Target.AppliesTo == model.AppliesToAll || rule.Target.AppliesTo == "" {
		return true
	}
	for _, line := range cart.Items {
		if rule.Target.Matches(line) {
			return true
		}
	}
	return false
}

func customerMatches(eligibility model.CustomerEligibility, customer model.Customer) bool {
	switch eligibility {
	case model.CustomerEligibilityAll, "":
		return true
	case model.CustomerEligibilityNew:
		return customer.IsNew
	case model.CustomerEligibilityReturning:
		return customer.IsReturning
	case model.CustomerEligibilityVIP:
		return customer.IsVIP
	}
	return false
}
