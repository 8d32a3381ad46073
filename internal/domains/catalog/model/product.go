package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// Product is the catalog view the pricing engine needs
type Product struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	Slug       string           `json:"slug"`
	Price      decimal.Decimal  `json:"price"`
	SalePrice  *decimal.Decimal `json:"sale_price,omitempty"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	Status     ProductStatus    `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// OnSale: a sale price strictly below the list price
func (p *Product) OnSale() bool {
	return p.SalePrice != nil && p.SalePrice.GreaterThanOrEqual(decimal.Zero) && p.SalePrice.LessThan(p.Price)
}

// EffectivePrice is the unit price charged before discounts
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return *p.SalePrice
	}
	return p.Price
}

func (p *Product) IsAvailable() bool {
	return p.Status == ProductStatusActive
}

// Category - danh mục sản phẩm (flat list, parent optional)
type Category struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	SortOrder int        `json:"sort_order"`
	IsActive  bool       `json:"is_active"`
}
