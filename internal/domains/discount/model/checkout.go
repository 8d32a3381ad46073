package model

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItemRequest - one storefront cart line, priced server side from the catalog
type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (c CartItemRequest) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProductID, validation.By(func(interface{}) error {
			if c.ProductID == uuid.Nil {
				return errors.New("product_id is required")
			}
			return nil
		})),
		validation.Field(&c.Quantity,
			validation.Required.Error("quantity is required"),
			validation.Min(1).Error("quantity must be >= 1"),
			validation.Max(999).Error("quantity must be <= 999"),
		),
	)
}

// CustomerFlags are the segment flags the storefront knows about the buyer
type CustomerFlags struct {
	IsNew       bool `json:"is_new"`
	IsReturning bool `json:"is_returning"`
	IsVIP       bool `json:"is_vip"`
}

// PriceCartRequest - POST /cart/preview
type PriceCartRequest struct {
	Items    []CartItemRequest `json:"items"`
	Codes    []string          `json:"codes"`
	Customer CustomerFlags     `json:"customer"`
	Currency string            `json:"currency"`

	CustomerID *uuid.UUID `json:"-"` // from the request actor, never from the body
}

func (r *PriceCartRequest) Normalize() {
	codes := make([]string, 0, len(r.Codes))
	seen := make(map[string]struct{})
	for _, code := range r.Codes {
		code = NormalizeCode(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	r.Codes = codes
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

func (r PriceCartRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items,
			validation.Required.Error("cart must not be empty"),
			validation.Length(1, 100).Error("cart must have 1-100 lines"),
		),
		validation.Field(&r.Codes, validation.Length(0, 10).Error("at most 10 codes can be entered")),
		validation.Field(&r.Currency, validation.Length(3, 3).Error("currency must be a 3 letter code")),
	)
}

// FinalizeOrderRequest - POST /checkout/finalize
type FinalizeOrderRequest struct {
	PriceCartRequest
	OrderID uuid.UUID `json:"order_id"`
}

func (r FinalizeOrderRequest) Validate() error {
	if err := r.PriceCartRequest.Validate(); err != nil {
		return err
	}
	if r.OrderID == uuid.Nil {
		return validation.Errors{"order_id": errors.New("order_id is required")}
	}
	return nil
}

// -------------------------------------------------------------------
// RESPONSES
// -------------------------------------------------------------------

type PricedLine struct {
	LineID    string          `json:"line_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	OnSale    bool            `json:"on_sale"`
}

// RejectedCode explains why an entered code was not applied
type RejectedCode struct {
	Code    string    `json:"code"`
	Reason  ErrorCode `json:"reason"`
	Message string    `json:"message"`
}

// PricingResult is returned by preview and finalize
type PricingResult struct {
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Currency      string          `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	Lines         []PricedLine    `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Total         decimal.Decimal `json:"total"`
	FreeShipping  bool            `json:"free_shipping"`
	BonusItems    []BonusItem     `json:"bonus_items"`
	Applied       []AppliedRule   `json:"applied"`
	RejectedCodes []RejectedCode  `json:"rejected_codes"`
	Selection     Selection       `json:"-"`
}
