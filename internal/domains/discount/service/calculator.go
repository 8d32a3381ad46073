package service

import (
	"sort"

	"shopcms-backend/internal/domains/discount/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountCalculator computes the adjustment a single rule produces on a cart
type DiscountCalculator struct{}

func NewDiscountCalculator() *DiscountCalculator {
	return &DiscountCalculator{}
}

// Apply computes the rule's adjustment. It assumes the rule is eligible and
// never fails: a cart with nothing targeted yields a zero adjustment.
//
// Business Logic:
//  1. percentage: targeted subtotal × value / 100, capped by max_discount (0 = no cap)
//  2. fixed: min(value, targeted subtotal), capped by max_discount
//  3. free_shipping: amount 0, free shipping flag set
//  4. buy_x_get_y: per product, every full group of buy+get units gives get
//     free units valued at the product's lowest unit price
//
// The amount is rounded half-up to 2 decimals once, at the end.
func (c *DiscountCalculator) Apply(rule *model.Rule, cart *model.Cart) model.Adjustment {
	return c.ApplyWithBreakdown(rule, cart).Adjustment
}

// DiscountBreakdown carries the intermediate values of a calculation (logging/debugging)
type DiscountBreakdown struct {
	Adjustment       model.Adjustment `json:"adjustment"`
	TargetedSubtotal decimal.Decimal  `json:"targeted_subtotal"`
	RawDiscount      decimal.Decimal  `json:"raw_discount"`
	Capped           bool             `json:"capped"`
	CapReason        string           `json:"cap_reason,omitempty"`
}

func (c *DiscountCalculator) ApplyWithBreakdown(rule *model.Rule, cart *model.Cart) DiscountBreakdown {
	lines := c.TargetedLines(rule, cart)
	subtotal := linesTotal(lines)

	breakdown := DiscountBreakdown{
		Adjustment:       model.ZeroAdjustment(),
		TargetedSubtotal: subtotal,
		RawDiscount:      decimal.Zero,
	}
	if len(lines) == 0 || rule.Effect == nil {
		return breakdown
	}

	switch effect := rule.Effect.(type) {
	case model.PercentageOff:
		if subtotal.IsZero() {
			return breakdown
		}
		breakdown.RawDiscount = subtotal.Mul(effect.Percent).Div(hundred)
		breakdown.Adjustment.AffectedLineIDs = lineIDs(lines)
		c.finalize(&breakdown, effect.MaxDiscount)

	case model.FixedOff:
		if subtotal.IsZero() {
			return breakdown
		}
		breakdown.RawDiscount = effect.Amount
		breakdown.Adjustment.AffectedLineIDs = lineIDs(lines)
		c.finalize(&breakdown, effect.MaxDiscount)

	case model.FreeShipping:
		breakdown.Adjustment.FreeShipping = true

	case model.BuyXGetY:
		raw, bonus, affected := c.buyXGetY(effect, lines)
		if len(bonus) == 0 {
			return breakdown
		}
		breakdown.RawDiscount = raw
		breakdown.Adjustment.BonusItems = bonus
		breakdown.Adjustment.AffectedLineIDs = affected
		c.finalize(&breakdown, effect.MaxDiscount)
	}

	return breakdown
}

// finalize clamps the raw amount to the targeted subtotal and max_discount, then rounds
func (c *DiscountCalculator) finalize(b *DiscountBreakdown, maxDiscount decimal.Decimal) {
	amount := b.RawDiscount

	if amount.GreaterThan(b.TargetedSubtotal) {
		amount = b.TargetedSubtotal
		b.Capped = true
		b.CapReason = "exceeds_subtotal"
	}
	if maxDiscount.IsPositive() && amount.GreaterThan(maxDiscount) {
		amount = maxDiscount
		b.Capped = true
		b.CapReason = "max_discount"
	}

	amount = roundMoney(amount)
	// caps given with more than 2 decimals must still hold after rounding
	if maxDiscount.IsPositive() && amount.GreaterThan(maxDiscount) {
		amount = maxDiscount.Truncate(2)
	}
	if amount.GreaterThan(b.TargetedSubtotal) {
		amount = b.TargetedSubtotal.Truncate(2)
	}

	b.Adjustment.DiscountAmount = amount
}

// buyXGetY groups the targeted units per product. Partial groups give nothing.
func (c *DiscountCalculator) buyXGetY(effect model.BuyXGetY, lines []model.LineItem) (decimal.Decimal, []model.BonusItem, []string) {
	groupSize := effect.Buy + effect.Get
	if effect.Buy < 1 || effect.Get < 1 {
		return decimal.Zero, nil, nil
	}

	type productUnits struct {
		units     int
		lowest    decimal.Decimal
		lineIDs   []string
		firstSeen int
	}

	products := make(map[uuid.UUID]*productUnits)
	for i, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		unitValue := line.Total().Div(decimal.NewFromInt(int64(line.Quantity)))

		p, ok := products[line.ProductID]
		if !ok {
			p = &productUnits{lowest: unitValue, firstSeen: i}
			products[line.ProductID] = p
		}
		p.units += line.Quantity
		if unitValue.LessThan(p.lowest) {
			p.lowest = unitValue
		}
		p.lineIDs = append(p.lineIDs, line.LineID)
	}

	ids := make([]uuid.UUID, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return products[ids[i]].firstSeen < products[ids[j]].firstSeen
	})

	raw := decimal.Zero
	var bonus []model.BonusItem
	var affected []string
	for _, id := range ids {
		p := products[id]
		free := (p.units / groupSize) * effect.Get
		if free == 0 {
			continue
		}
		raw = raw.Add(p.lowest.Mul(decimal.NewFromInt(int64(free))))
		bonus = append(bonus, model.BonusItem{ProductID: id, Quantity: free})
		affected = append(affected, p.lineIDs...)
	}

	return raw, bonus, affected
}

// TargetedLines returns the lines the rule acts on, honouring applies_to and exclude_sale_items
func (c *DiscountCalculator) TargetedLines(rule *model.Rule, cart *model.Cart) []model.LineItem {
	var lines []model.LineItem
	for _, line := range cart.Items {
		if !rule.Target.Matches(line) {
			continue
		}
		if rule.Conditions.ExcludeSaleItems && line.AlreadyDiscounted {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// TargetedSubtotal is the open value of the targeted lines
func (c *DiscountCalculator) TargetedSubtotal(rule *model.Rule, cart *model.Cart) decimal.Decimal {
	return linesTotal(c.TargetedLines(rule, cart))
}

func linesTotal(lines []model.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total())
	}
	return total
}

func lineIDs(lines []model.LineItem) []string {
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.LineID
	}
	return ids
}

// roundMoney rounds half-up (half away from zero for positive amounts) to cents
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
