package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcms-backend/internal/domains/discount/model"
)

func TestDiscountCalculator_Percentage(t *testing.T) {
	calc := NewDiscountCalculator()

	t.Run("SUMMER10 on 50.00", func(t *testing.T) {
		rule := percentRule("10")
		rule.Code = "SUMMER10"
		cart := cartOf(line("l1", "50.00", 1))

		adj := calc.Apply(&rule, &cart)
		assert.Equal(t, "5", adj.DiscountAmount.String())
		assert.Equal(t, []string{"l1"}, adj.AffectedLineIDs)
		assert.False(t, adj.FreeShipping)
	})

	t.Run("clamped to max_discount", func(t *testing.T) {
		rule := percentRule("50")
		rule.Effect = model.PercentageOff{Percent: dec("50"), MaxDiscount: dec("20")}
		cart := cartOf(line("l1", "100", 1))

		b := calc.ApplyWithBreakdown(&rule, &cart)
		assert.Equal(t, "20", b.Adjustment.DiscountAmount.String())
		assert.True(t, b.Capped)
		assert.Equal(t, "max_discount", b.CapReason)
	})

	t.Run("rounds half up once", func(t *testing.T) {
		rule := percentRule("10")
		cart := cartOf(line("l1", "0.25", 1))

		assert.Equal(t, "0.03", calc.Apply(&rule, &cart).DiscountAmount.StringFixed(2))
	})

	t.Run("only targeted lines count", func(t *testing.T) {
		l1, l2 := line("l1", "40", 1), line("l2", "60", 1)
		rule := percentRule("10")
		rule.Target = model.Targeting{AppliesTo: model.AppliesToProducts, IDs: []uuid.UUID{l2.ProductID}}
		cart := cartOf(l1, l2)

		adj := calc.Apply(&rule, &cart)
		assert.Equal(t, "6", adj.DiscountAmount.String())
		assert.Equal(t, []string{"l2"}, adj.AffectedLineIDs)
	})

	t.Run("exclude sale items", func(t *testing.T) {
		sale := line("l1", "40", 1)
		sale.AlreadyDiscounted = true
		rule := percentRule("10")
		rule.Conditions.ExcludeSaleItems = true
		cart := cartOf(sale, line("l2", "60", 1))

		assert.Equal(t, "6", calc.Apply(&rule, &cart).DiscountAmount.String())
	})

	t.Run("nothing targeted gives zero", func(t *testing.T) {
		sale := line("l1", "40", 1)
		sale.AlreadyDiscounted = true
		rule := percentRule("10")
		rule.Conditions.ExcludeSaleItems = true
		cart := cartOf(sale)

		adj := calc.Apply(&rule, &cart)
		assert.True(t, adj.IsZero())
	})
}

func TestDiscountCalculator_Fixed(t *testing.T) {
	calc := NewDiscountCalculator()

	t.Run("fixed 20 on 15.00 gives 15.00", func(t *testing.T) {
		rule := fixedRule("20")
		cart := cartOf(line("l1", "15.00", 1))

		b := calc.ApplyWithBreakdown(&rule, &cart)
		assert.Equal(t, "15.00", b.Adjustment.DiscountAmount.StringFixed(2))
		assert.Equal(t, "exceeds_subtotal", b.CapReason)
	})

	t.Run("fixed below subtotal", func(t *testing.T) {
		rule := fixedRule("20")
		cart := cartOf(line("l1", "35.50", 1))
		assert.Equal(t, "20", calc.Apply(&rule, &cart).DiscountAmount.String())
	})

	t.Run("never above subtotal for any amount", func(t *testing.T) {
		for _, amount := range []string{"0.01", "9.99", "10", "10.01", "1000"} {
			rule := fixedRule(amount)
			cart := cartOf(line("l1", "4", 2), line("l2", "2", 1))
			adj := calc.Apply(&rule, &cart)
			assert.True(t, adj.DiscountAmount.LessThanOrEqual(cart.Subtotal), amount)
		}
	})
}

func TestDiscountCalculator_FreeShipping(t *testing.T) {
	rule := percentRule("0")
	rule.Effect = model.FreeShipping{}
	cart := cartOf(line("l1", "10", 1))

	adj := NewDiscountCalculator().Apply(&rule, &cart)
	assert.True(t, adj.FreeShipping)
	assert.True(t, adj.DiscountAmount.IsZero())
}

func TestDiscountCalculator_BuyXGetY(t *testing.T) {
	calc := NewDiscountCalculator()
	rule := percentRule("0")
	rule.Effect = model.BuyXGetY{Buy: 2, Get: 1}

	tests := []struct {
		qty       int
		wantBonus int
		wantValue string
	}{
		{qty: 2, wantBonus: 0, wantValue: "0"},
		{qty: 3, wantBonus: 1, wantValue: "10"},
		{qty: 5, wantBonus: 1, wantValue: "10"},
		{qty: 6, wantBonus: 2, wantValue: "20"},
	}

	for _, tt := range tests {
		l := line("l1", "10", tt.qty)
		cart := cartOf(l)
		adj := calc.Apply(&rule, &cart)

		if tt.wantBonus == 0 {
			assert.Empty(t, adj.BonusItems, "qty %d", tt.qty)
		} else {
			require.Len(t, adj.BonusItems, 1, "qty %d", tt.qty)
			assert.Equal(t, l.ProductID, adj.BonusItems[0].ProductID)
			assert.Equal(t, tt.wantBonus, adj.BonusItems[0].Quantity, "qty %d", tt.qty)
		}
		assert.Equal(t, tt.wantValue, adj.DiscountAmount.String(), "qty %d", tt.qty)
	}
}

func TestDiscountCalculator_BuyXGetYLowestPrice(t *testing.T) {
	// same product on two lines at different prices: free units valued at the lowest
	cheap := line("l1", "8", 1)
	dear := line("l2", "12", 2)
	dear.ProductID = cheap.ProductID

	rule := percentRule("0")
	rule.Effect = model.BuyXGetY{Buy: 2, Get: 1, MaxDiscount: dec("5")}
	cart := cartOf(cheap, dear)

	adj := NewDiscountCalculator().Apply(&rule, &cart)
	require.Len(t, adj.BonusItems, 1)
	assert.Equal(t, 1, adj.BonusItems[0].Quantity)
	assert.Equal(t, "5", adj.DiscountAmount.String())
	assert.ElementsMatch(t, []string{"l1", "l2"}, adj.AffectedLineIDs)
}
