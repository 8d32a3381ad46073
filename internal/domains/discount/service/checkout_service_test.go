package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogModel "shopcms-backend/internal/domains/catalog/model"
	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/repository"
	"shopcms-backend/pkg/cache"
)

// -------------------------------------------------------------------
// FAKES
// -------------------------------------------------------------------

type fakeCatalog struct {
	products map[uuid.UUID]*catalogModel.Product
}

func (f *fakeCatalog) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalogModel.Product, error) {
	out := make(map[uuid.UUID]*catalogModel.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeCatalog) add(name, price string, sale *string) *catalogModel.Product {
	p := &catalogModel.Product{
		ID:     uuid.New(),
		Name:   name,
		Price:  dec(price),
		Status: catalogModel.ProductStatusActive,
	}
	if sale != nil {
		s := dec(*sale)
		p.SalePrice = &s
	}
	f.products[p.ID] = p
	return p
}

type fakeSales struct {
	rules []model.Rule
}

func (f *fakeSales) SalesRules(ctx context.Context) ([]model.Rule, error) {
	return f.rules, nil
}

type fakeCurrency struct{}

func (fakeCurrency) BaseCurrency() string { return "EUR" }

func (fakeCurrency) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	switch code {
	case "EUR":
		return decimal.NewFromInt(1), nil
	case "USD":
		return dec("1.08"), nil
	}
	return decimal.Zero, errors.New("unsupported currency")
}

// racingUsageRepo lets another order take the last redemption right before our commit
type racingUsageRepo struct {
	repository.UsageRepository
	steal   uuid.UUID
	stolen  bool
	commits int
}

func (r *racingUsageRepo) CommitUsages(ctx context.Context, commits []model.UsageCommit) ([]*model.DiscountUsage, error) {
	r.commits++
	if !r.stolen && r.steal != uuid.Nil {
		r.stolen = true
		if _, err := r.UsageRepository.CommitUsages(ctx, []model.UsageCommit{{
			RuleID:  r.steal,
			Source:  model.RuleSourceDiscount,
			OrderID: uuid.New(),
		}}); err != nil {
			return nil, err
		}
	}
	return r.UsageRepository.CommitUsages(ctx, commits)
}

type checkoutFixture struct {
	svc       CheckoutServiceInterface
	discounts *discountService
	repo      *repository.JSONRepository
	usage     *racingUsageRepo
	catalog   *fakeCatalog
	sales     *fakeSales
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	repo := newJSONRepo(t)
	discounts := NewDiscountService(repo, repo, cache.NewMemoryCache(), time.Minute).(*discountService)

	f := &checkoutFixture{
		discounts: discounts,
		repo:      repo,
		usage:     &racingUsageRepo{UsageRepository: repo},
		catalog:   &fakeCatalog{products: make(map[uuid.UUID]*catalogModel.Product)},
		sales:     &fakeSales{},
	}
	f.svc = NewCheckoutService(discounts, f.sales, f.catalog, fakeCurrency{}, f.usage, CheckoutConfig{
		ShippingFee:         dec("4.90"),
		MaxFinalizeAttempts: 5,
	})
	return f
}

func (f *checkoutFixture) create(t *testing.T, req *model.CreateDiscountRequest) *model.Discount {
	t.Helper()
	d, err := f.discounts.CreateDiscount(context.Background(), req)
	require.NoError(t, err)
	return d
}

// -------------------------------------------------------------------
// PREVIEW
// -------------------------------------------------------------------

func TestCheckout_PreviewSummer10(t *testing.T) {
	f := newCheckoutFixture(t)
	f.create(t, summerRequest())
	shirt := f.catalog.add("Shirt", "25.00", nil)

	result, err := f.svc.PreviewCart(context.Background(), &model.PriceCartRequest{
		Items: []model.CartItemRequest{{ProductID: shirt.ID, Quantity: 2}},
		Codes: []string{"summer10", "NOPE"},
	})
	require.NoError(t, err)

	assert.Equal(t, "EUR", result.Currency)
	assert.Equal(t, "50.00", result.Subtotal.StringFixed(2))
	assert.Equal(t, "5.00", result.DiscountTotal.StringFixed(2))
	assert.Equal(t, "4.90", result.ShippingFee.StringFixed(2))
	assert.Equal(t, "49.90", result.Total.StringFixed(2))
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "SUMMER10", result.Applied[0].Code)

	require.Len(t, result.RejectedCodes, 1)
	assert.Equal(t, "NOPE", result.RejectedCodes[0].Code)
	assert.Equal(t, model.ErrCodePromoNotFound, result.RejectedCodes[0].Reason)

	// preview never redeems
	assert.Equal(t, 0, f.usage.commits)
}

func TestCheckout_PreviewExplainsIneligibleCode(t *testing.T) {
	f := newCheckoutFixture(t)
	req := summerRequest()
	req.MinPurchase = dec("100")
	f.create(t, req)
	mug := f.catalog.add("Mug", "12.00", nil)

	result, err := f.svc.PreviewCart(context.Background(), &model.PriceCartRequest{
		Items: []model.CartItemRequest{{ProductID: mug.ID, Quantity: 1}},
		Codes: []string{"SUMMER10"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Applied)
	require.Len(t, result.RejectedCodes, 1)
	assert.Equal(t, model.ErrCodePromoMinOrderNotMet, result.RejectedCodes[0].Reason)
}

func TestCheckout_PreviewNotCombinable(t *testing.T) {
	f := newCheckoutFixture(t)
	big := summerRequest()
	big.Code = "BIG20"
	big.Value = dec("20")
	big.Priority = 10
	f.create(t, big)
	f.create(t, summerRequest())
	mug := f.catalog.add("Mug", "12.00", nil)

	result, err := f.svc.PreviewCart(context.Background(), &model.PriceCartRequest{
		Items: []model.CartItemRequest{{ProductID: mug.ID, Quantity: 1}},
		Codes: []string{"BIG20", "SUMMER10"},
	})
	require.NoError(t, err)

	require.Len(t, result.Applied, 1)
	assert.Equal(t, "BIG20", result.Applied[0].Code)
	require.Len(t, result.RejectedCodes, 1)
	assert.Equal(t, model.ErrCodePromoNotCombinable, result.RejectedCodes[0].Reason)
}

func TestCheckout_PreviewSaleItemsAndFreeShipping(t *testing.T) {
	f := newCheckoutFixture(t)
	req := summerRequest()
	req.ExcludeSaleItems = true
	req.Combinable = true
	f.create(t, req)
	f.create(t, &model.CreateDiscountRequest{
		Name:       "Free shipping",
		Type:       "free_shipping",
		AutoApply:  true,
		Combinable: true,
		Priority:   100,
	})

	sale := "8.00"
	poster := f.catalog.add("Poster", "10.00", &sale)
	mug := f.catalog.add("Mug", "20.00", nil)

	result, err := f.svc.PreviewCart(context.Background(), &model.PriceCartRequest{
		Items: []model.CartItemRequest{
			{ProductID: poster.ID, Quantity: 1},
			{ProductID: mug.ID, Quantity: 1},
		},
		Codes: []string{"SUMMER10"},
	})
	require.NoError(t, err)

	assert.True(t, result.FreeShipping)
	assert.True(t, result.ShippingFee.IsZero())
	assert.Equal(t, "28.00", result.Subtotal.StringFixed(2))
	// 10% of the mug only
	assert.Equal(t, "2.00", result.DiscountTotal.StringFixed(2))
	assert.Equal(t, "26.00", result.Total.StringFixed(2))
	assert.True(t, result.Lines[0].OnSale)
}

func TestCheckout_PreviewInCurrency(t *testing.T) {
	f := newCheckoutFixture(t)
	f.create(t, summerRequest())
	shirt := f.catalog.add("Shirt", "50.00", nil)

	result, err := f.svc.PreviewCart(context.Background(), &model.PriceCartRequest{
		Items:    []model.CartItemRequest{{ProductID: shirt.ID, Quantity: 1}},
		Codes:    []string{"SUMMER10"},
		Currency: "usd",
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, "54.00", result.Subtotal.StringFixed(2))
	assert.Equal(t, "5.40", result.DiscountTotal.StringFixed(2))
	assert.Equal(t, "5.29", result.ShippingFee.StringFixed(2))
	assert.Equal(t, "53.89", result.Total.StringFixed(2))
	assert.Equal(t, "5.40", result.Applied[0].Adjustment.DiscountAmount.StringFixed(2))
}

func TestCheckout_PreviewUnknownProduct(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.PreviewCart(context.Background(), &model.PriceCartRequest{
		Items: []model.CartItemRequest{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, catalogModel.ErrProductNotFound)
}

func TestCheckout_SalesPromotionsJoinThePool(t *testing.T) {
	f := newCheckoutFixture(t)
	promo := percentRule("25")
	promo.Source = model.RuleSourcePromotion
	promo.Combinable = true
	f.sales.rules = []model.Rule{promo}
	mug := f.catalog.add("Mug", "40.00", nil)

	result, err := f.svc.FinalizeOrder(context.Background(), &model.FinalizeOrderRequest{
		PriceCartRequest: model.PriceCartRequest{
			Items: []model.CartItemRequest{{ProductID: mug.ID, Quantity: 1}},
		},
		OrderID: uuid.New(),
	})
	require.NoError(t, err)

	require.Len(t, result.Applied, 1)
	assert.Equal(t, model.RuleSourcePromotion, result.Applied[0].Source)
	assert.Equal(t, "10", result.DiscountTotal.String())
	// promotions carry no counters: nothing reaches the usage store
	assert.Equal(t, 0, f.usage.commits)
}

// -------------------------------------------------------------------
// FINALIZE
// -------------------------------------------------------------------

func TestCheckout_FinalizeCommitsUsage(t *testing.T) {
	f := newCheckoutFixture(t)
	d := f.create(t, summerRequest())
	shirt := f.catalog.add("Shirt", "50.00", nil)
	customer := uuid.New()

	req := &model.FinalizeOrderRequest{
		PriceCartRequest: model.PriceCartRequest{
			Items:      []model.CartItemRequest{{ProductID: shirt.ID, Quantity: 1}},
			Codes:      []string{"SUMMER10"},
			CustomerID: &customer,
		},
		OrderID: uuid.New(),
	}
	result, err := f.svc.FinalizeOrder(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.OrderID)
	assert.Equal(t, req.OrderID, *result.OrderID)
	assert.Equal(t, "5", result.DiscountTotal.String())

	stored, err := f.repo.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Limits.UsedCount)

	counts, err := f.repo.CountByCustomer(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[d.ID])
}

func TestCheckout_FinalizeKeepsCodeWithNoEffect(t *testing.T) {
	f := newCheckoutFixture(t)
	f.create(t, &model.CreateDiscountRequest{
		Name:       "Storewide 10",
		Type:       "percentage",
		Value:      dec("10"),
		AutoApply:  true,
		Combinable: true,
		Priority:   10,
	})
	save5 := f.create(t, &model.CreateDiscountRequest{
		Code:             "SAVE5",
		Name:             "Save 5",
		Type:             "percentage",
		Value:            dec("5"),
		Combinable:       true,
		MaxUses:          1,
		ExcludeSaleItems: true,
	})
	lamp := f.catalog.add("Lamp", "100.00", nil)

	result, err := f.svc.FinalizeOrder(context.Background(), &model.FinalizeOrderRequest{
		PriceCartRequest: model.PriceCartRequest{
			Items: []model.CartItemRequest{{ProductID: lamp.ID, Quantity: 1}},
			Codes: []string{"SAVE5"},
		},
		OrderID: uuid.New(),
	})
	require.NoError(t, err)

	// the storewide rule already discounted the only line
	require.Len(t, result.Applied, 1)
	assert.Equal(t, "10", result.DiscountTotal.String())
	require.Len(t, result.RejectedCodes, 1)
	assert.Equal(t, "SAVE5", result.RejectedCodes[0].Code)
	assert.Equal(t, model.ErrCodePromoNoEffect, result.RejectedCodes[0].Reason)

	stored, err := f.repo.FindByID(context.Background(), save5.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Limits.UsedCount)
}

func TestCheckout_FinalizeReselectsWhenCapIsTaken(t *testing.T) {
	f := newCheckoutFixture(t)

	limited := summerRequest()
	limited.Code = "LAST20"
	limited.Value = dec("20")
	limited.Priority = 10
	limited.MaxUses = 1
	first := f.create(t, limited)

	fallback := f.create(t, summerRequest())
	shirt := f.catalog.add("Shirt", "50.00", nil)

	f.usage.steal = first.ID

	result, err := f.svc.FinalizeOrder(context.Background(), &model.FinalizeOrderRequest{
		PriceCartRequest: model.PriceCartRequest{
			Items: []model.CartItemRequest{{ProductID: shirt.ID, Quantity: 1}},
			Codes: []string{"LAST20", "SUMMER10"},
		},
		OrderID: uuid.New(),
	})
	require.NoError(t, err)

	require.Len(t, result.Applied, 1)
	assert.Equal(t, fallback.ID, result.Applied[0].RuleID)
	assert.Equal(t, "5", result.DiscountTotal.String())
	assert.Equal(t, 2, f.usage.commits)

	require.Len(t, result.RejectedCodes, 1)
	assert.Equal(t, "LAST20", result.RejectedCodes[0].Code)
	assert.Equal(t, model.ErrCodePromoUsageLimitExceeded, result.RejectedCodes[0].Reason)
}

func TestCheckout_FinalizeGivesUpAfterMaxAttempts(t *testing.T) {
	f := newCheckoutFixture(t)
	limited := summerRequest()
	limited.MaxUses = 1
	d := f.create(t, limited)
	f.usage.steal = d.ID

	svc := NewCheckoutService(f.discounts, f.sales, f.catalog, fakeCurrency{}, f.usage, CheckoutConfig{
		ShippingFee:         dec("4.90"),
		MaxFinalizeAttempts: 1,
	})
	shirt := f.catalog.add("Shirt", "50.00", nil)

	_, err := svc.FinalizeOrder(context.Background(), &model.FinalizeOrderRequest{
		PriceCartRequest: model.PriceCartRequest{
			Items: []model.CartItemRequest{{ProductID: shirt.ID, Quantity: 1}},
			Codes: []string{"SUMMER10"},
		},
		OrderID: uuid.New(),
	})
	assert.ErrorIs(t, err, model.ErrFinalizeRetriesExhausted)
}

func TestCheckout_FinalizeRequiresOrderID(t *testing.T) {
	f := newCheckoutFixture(t)
	shirt := f.catalog.add("Shirt", "50.00", nil)

	_, err := f.svc.FinalizeOrder(context.Background(), &model.FinalizeOrderRequest{
		PriceCartRequest: model.PriceCartRequest{
			Items: []model.CartItemRequest{{ProductID: shirt.ID, Quantity: 1}},
		},
	})
	assert.Error(t, err)
}
