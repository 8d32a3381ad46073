package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	discountModel "shopcms-backend/internal/domains/discount/model"
)

// -------------------------------------------------------------------
// CREATE / UPDATE
// -------------------------------------------------------------------

type CreatePromotionRequest struct {
	Title         string          `json:"title"`
	Description   *string         `json:"description"`
	Type          string          `json:"type"`
	ImageURL      *string         `json:"image_url"`
	LinkURL       *string         `json:"link_url"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MinPurchase   decimal.Decimal `json:"min_purchase"`
	ProductIDs    []uuid.UUID     `json:"product_ids"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	BuyQuantity   int             `json:"buy_quantity"`
	GetQuantity   int             `json:"get_quantity"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	Order         int             `json:"order"`
	IsActive      *bool           `json:"is_active"`
}

func (r *CreatePromotionRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.DiscountType = strings.ToLower(strings.TrimSpace(r.DiscountType))
}

// Validate kiểm tra request theo loại promotion
func (r CreatePromotionRequest) Validate() error {
	t := PromotionType(r.Type)
	priced := t.IsSales() && t != PromotionTypeBuyXGetY
	percentage := r.DiscountType == string(discountModel.DiscountTypePercentage)

	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			validation.Length(3, 200).Error("title must be 3-200 characters"),
		),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Type,
			validation.Required.Error("type is required"),
			validation.By(func(interface{}) error {
				if !t.IsValid() {
					return ErrInvalidPromotionType
				}
				return nil
			}),
		),
		validation.Field(&r.ImageURL,
			validation.When(t.IsVisual(), validation.Required.Error("image_url is required for visual promotions")),
			is.URL,
		),
		validation.Field(&r.LinkURL, is.URL),
		validation.Field(&r.DiscountType,
			validation.When(priced,
				validation.Required.Error("discount_type is required"),
				validation.In("percentage", "fixed").Error("discount_type must be percentage or fixed"),
			),
		),
		validation.Field(&r.DiscountValue, validation.By(func(interface{}) error {
			if !priced {
				return nil
			}
			if !r.DiscountValue.IsPositive() {
				return errors.New("discount_value must be > 0")
			}
			if percentage && r.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
				return errors.New("percentage must be <= 100")
			}
			return nil
		})),
		validation.Field(&r.MinPurchase, validation.By(func(interface{}) error {
			if r.MinPurchase.IsNegative() {
				return errors.New("min_purchase must be >= 0")
			}
			return nil
		})),
		validation.Field(&r.ProductIDs,
			validation.When(t == PromotionTypeProductDiscount || t == PromotionTypeBundle,
				validation.Required.Error("product_ids is required"),
			),
		),
		validation.Field(&r.CategoryID,
			validation.When(t == PromotionTypeCategoryDiscount, validation.Required.Error("category_id is required")),
		),
		validation.Field(&r.BuyQuantity,
			validation.When(t == PromotionTypeBuyXGetY, validation.Required, validation.Min(1)),
		),
		validation.Field(&r.GetQuantity,
			validation.When(t == PromotionTypeBuyXGetY, validation.Required, validation.Min(1)),
		),
		validation.Field(&r.EndDate, validation.By(func(interface{}) error {
			if r.StartDate != nil && r.EndDate != nil && !r.EndDate.After(*r.StartDate) {
				return errors.New("end_date must be after start_date")
			}
			return nil
		})),
		validation.Field(&r.Order, validation.Min(0)),
	)
}

// ToPromotion builds the entity; fields irrelevant to the type are dropped
func (r *CreatePromotionRequest) ToPromotion() *Promotion {
	p := &Promotion{
		Title:       r.Title,
		Description: r.Description,
		Type:        PromotionType(r.Type),
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		SortOrder:   r.Order,
		IsActive:    true,
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}

	switch {
	case p.Type.IsVisual():
		p.ImageURL = r.ImageURL
		p.LinkURL = r.LinkURL
	case p.Type == PromotionTypeBuyXGetY:
		p.BuyQuantity = r.BuyQuantity
		p.GetQuantity = r.GetQuantity
		p.ProductIDs = r.ProductIDs
		p.MinPurchase = r.MinPurchase
	default:
		p.DiscountType = discountModel.DiscountType(r.DiscountType)
		p.DiscountValue = r.DiscountValue
		p.MinPurchase = r.MinPurchase
		switch p.Type {
		case PromotionTypeProductDiscount, PromotionTypeBundle:
			p.ProductIDs = r.ProductIDs
		case PromotionTypeCategoryDiscount:
			p.CategoryID = r.CategoryID
		}
		p.ImageURL = r.ImageURL
		p.LinkURL = r.LinkURL
	}
	return p
}

// UpdatePromotionRequest replaces every editable field (PUT semantics)
type UpdatePromotionRequest struct {
	CreatePromotionRequest
	Version int `json:"version"`
}

func (r UpdatePromotionRequest) Validate() error {
	if err := r.CreatePromotionRequest.Validate(); err != nil {
		return err
	}
	if r.Version < 1 {
		return validation.Errors{"version": errors.New("version is required")}
	}
	return nil
}

// -------------------------------------------------------------------
// LIST
// -------------------------------------------------------------------

type ListPromotionsFilter struct {
	Type   string `form:"type"`
	Status string `form:"status"` // active, inactive
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

func (f *ListPromotionsFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
}

func (f ListPromotionsFilter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Type, validation.By(func(interface{}) error {
			if f.Type != "" && !PromotionType(f.Type).IsValid() {
				return ErrInvalidPromotionType
			}
			return nil
		})),
		validation.Field(&f.Status, validation.In("active", "inactive")),
	)
}

// Matches applies the filter to one live promotion
func (f *ListPromotionsFilter) Matches(p *Promotion) bool {
	if f.Type != "" && string(p.Type) != f.Type {
		return false
	}
	switch f.Status {
	case "active":
		return p.IsActive
	case "inactive":
		return !p.IsActive
	}
	return true
}

// ActivePromotionsResponse - GET /promotions/active
type ActivePromotionsResponse struct {
	Visual []*Promotion `json:"visual"`
	Sales  []*Promotion `json:"sales"`
}
