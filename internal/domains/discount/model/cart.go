package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one priced line of a cart snapshot.
// PriorDiscount is the share of earlier stacked rules already allocated to the line.
type LineItem struct {
	LineID            string          `json:"line_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	CategoryID        uuid.UUID       `json:"category_id"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Quantity          int             `json:"quantity"`
	AlreadyDiscounted bool            `json:"already_discounted"`
	PriorDiscount     decimal.Decimal `json:"-"`
}

// GrossTotal = unit_price * quantity
func (l LineItem) GrossTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total is the line value still open to discounting, never negative
func (l LineItem) Total() decimal.Decimal {
	total := l.GrossTotal().Sub(l.PriorDiscount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Customer is the buyer as seen by the eligibility checks.
// Redemptions counts prior committed uses per rule id.
type Customer struct {
	ID          *uuid.UUID        `json:"id,omitempty"`
	IsNew       bool              `json:"is_new"`
	IsReturning bool              `json:"is_returning"`
	IsVIP       bool              `json:"is_vip"`
	Redemptions map[uuid.UUID]int `json:"-"`
}

func (c Customer) RedemptionsOf(ruleID uuid.UUID) int {
	if c.Redemptions == nil {
		return 0
	}
	return c.Redemptions[ruleID]
}

// Cart is the immutable snapshot handed to the engine
type Cart struct {
	Items        []LineItem      `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Customer     Customer        `json:"customer"`
	AppliedCodes []string        `json:"applied_codes"`
}

// NewCart builds a snapshot and computes the subtotal from the lines
func NewCart(items []LineItem, customer Customer, codes []string) Cart {
	cart := Cart{
		Items:        items,
		Customer:     customer,
		AppliedCodes: codes,
	}
	cart.Subtotal = cart.LinesTotal()
	return cart
}

// LinesTotal sums the open value of every line
func (c *Cart) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Total())
	}
	return total
}

// ItemCount is the number of units (sum of quantities)
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Clone copies the line slice so stacking never mutates the caller's snapshot
func (c *Cart) Clone() Cart {
	clone := *c
	clone.Items = make([]LineItem, len(c.Items))
	copy(clone.Items, c.Items)
	return clone
}
