package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogModel "shopcms-backend/internal/domains/catalog/model"
	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/repository"
	"shopcms-backend/pkg/logger"
)

// CheckoutConfig - pricing knobs of the checkout
type CheckoutConfig struct {
	ShippingFee         decimal.Decimal
	MaxFinalizeAttempts int
}

type checkoutService struct {
	discounts  ServiceInterface
	promotions SalesRuleSource
	catalog    ProductCatalog
	currency   CurrencyConverter
	usageRepo  repository.UsageRepository
	ledger     *Ledger
	selector   *Selector
	evaluator  *EligibilityEvaluator
	cfg        CheckoutConfig
}

func NewCheckoutService(
	discounts ServiceInterface,
	promotions SalesRuleSource,
	catalog ProductCatalog,
	currency CurrencyConverter,
	usageRepo repository.UsageRepository,
	cfg CheckoutConfig,
) CheckoutServiceInterface {
	if cfg.MaxFinalizeAttempts < 1 {
		cfg.MaxFinalizeAttempts = 1
	}

	evaluator := NewEligibilityEvaluator(nil)
	return &checkoutService{
		discounts:  discounts,
		promotions: promotions,
		catalog:    catalog,
		currency:   currency,
		usageRepo:  usageRepo,
		ledger:     NewLedger(usageRepo),
		selector:   NewSelector(evaluator, NewDiscountCalculator()),
		evaluator:  evaluator,
		cfg:        cfg,
	}
}

// -------------------------------------------------------------------
// PREVIEW
// -------------------------------------------------------------------

// PreviewCart prices a cart and shows which rules would apply. Nothing is committed.
func (s *checkoutService) PreviewCart(ctx context.Context, req *model.PriceCartRequest) (*model.PricingResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cart, lines, err := s.buildCart(ctx, req)
	if err != nil {
		return nil, err
	}

	rules, err := s.candidateRules(ctx, req.Codes)
	if err != nil {
		return nil, err
	}

	selection := s.selector.Select(&cart, rules, req.Codes)
	result := s.price(&cart, lines, selection, rules, req.Codes, nil)

	return s.convert(ctx, result, req.Currency)
}

// -------------------------------------------------------------------
// FINALIZE
// -------------------------------------------------------------------

// FinalizeOrder selects the rules for an order and commits their usage.
//
// Business Logic:
// 1. Build the cart and the candidate pool once
// 2. Select, then commit every selected rule through the ledger (all or nothing)
// 3. A rule whose cap was reached since selection is excluded and selection re-runs
// 4. Bounded by MaxFinalizeAttempts; each retry excludes one more rule
func (s *checkoutService) FinalizeOrder(ctx context.Context, req *model.FinalizeOrderRequest) (*model.PricingResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cart, lines, err := s.buildCart(ctx, &req.PriceCartRequest)
	if err != nil {
		return nil, err
	}

	rules, err := s.candidateRules(ctx, req.Codes)
	if err != nil {
		return nil, err
	}

	excluded := make(map[uuid.UUID]model.IneligibleReason)
	for attempt := 1; attempt <= s.cfg.MaxFinalizeAttempts; attempt++ {
		available := withoutRules(rules, excluded)
		selection := s.selector.Select(&cart, available, req.Codes)

		_, err := s.ledger.CommitAll(ctx, usageCommits(selection, cart.Customer.ID, req.OrderID))
		var exceeded *model.UsageExceededError
		if errors.As(err, &exceeded) {
			reason := model.ReasonUsageLimit
			if exceeded.PerCustomer {
				reason = model.ReasonCustomerLimit
			}
			excluded[exceeded.RuleID] = reason

			logger.Warn("Re-selecting discounts after usage conflict", map[string]interface{}{
				"order_id":    req.OrderID.String(),
				"discount_id": exceeded.RuleID.String(),
				"attempt":     attempt,
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		if hasCountedRules(selection) {
			s.discounts.InvalidateRuleCache(ctx)
		}

		result := s.price(&cart, lines, selection, rules, req.Codes, excluded)
		orderID := req.OrderID
		result.OrderID = &orderID

		logger.Info("Order discounts finalized", map[string]interface{}{
			"order_id":       req.OrderID.String(),
			"rules":          len(selection.Applied),
			"discount_total": result.DiscountTotal.String(),
			"attempts":       attempt,
		})
		return s.convert(ctx, result, req.Currency)
	}

	logger.ErrorWithFields("Finalize gave up", model.ErrFinalizeRetriesExhausted, map[string]interface{}{
		"order_id": req.OrderID.String(),
		"attempts": s.cfg.MaxFinalizeAttempts,
	})
	return nil, model.ErrFinalizeRetriesExhausted
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

// buildCart prices the requested lines from the catalog. A catalog sale price
// marks the line as already discounted.
func (s *checkoutService) buildCart(ctx context.Context, req *model.PriceCartRequest) (model.Cart, []model.PricedLine, error) {
	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return model.Cart{}, nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]model.LineItem, 0, len(req.Items))
	lines := make([]model.PricedLine, 0, len(req.Items))
	for i, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return model.Cart{}, nil, fmt.Errorf("%w: %s", catalogModel.ErrProductNotFound, item.ProductID)
		}
		if !product.IsAvailable() {
			return model.Cart{}, nil, fmt.Errorf("%w: %s", catalogModel.ErrProductUnavailable, item.ProductID)
		}

		var categoryID uuid.UUID
		if product.CategoryID != nil {
			categoryID = *product.CategoryID
		}

		line := model.LineItem{
			LineID:            fmt.Sprintf("line-%d", i+1),
			ProductID:         product.ID,
			CategoryID:        categoryID,
			UnitPrice:         product.EffectivePrice(),
			Quantity:          item.Quantity,
			AlreadyDiscounted: product.OnSale(),
		}
		items = append(items, line)
		lines = append(lines, model.PricedLine{
			LineID:    line.LineID,
			ProductID: line.ProductID,
			Name:      product.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.GrossTotal(),
			OnSale:    line.AlreadyDiscounted,
		})
	}

	customer := model.Customer{
		ID:          req.CustomerID,
		IsNew:       req.Customer.IsNew,
		IsReturning: req.Customer.IsReturning,
		IsVIP:       req.Customer.IsVIP,
	}
	if req.CustomerID != nil {
		redemptions, err := s.usageRepo.CountByCustomer(ctx, *req.CustomerID)
		if err != nil {
			return model.Cart{}, nil, fmt.Errorf("count customer redemptions: %w", err)
		}
		customer.Redemptions = redemptions
	}

	return model.NewCart(items, customer, req.Codes), lines, nil
}

// candidateRules merges discount rules with the running sales promotions
func (s *checkoutService) candidateRules(ctx context.Context, codes []string) ([]model.Rule, error) {
	rules, err := s.discounts.CandidateRules(ctx, codes)
	if err != nil {
		return nil, err
	}

	if s.promotions != nil {
		sales, err := s.promotions.SalesRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("load sales promotions: %w", err)
		}
		rules = append(rules, sales...)
	}
	return rules, nil
}

// price turns a selection into totals and explains every entered code that was not applied
func (s *checkoutService) price(
	cart *model.Cart,
	lines []model.PricedLine,
	selection model.Selection,
	rules []model.Rule,
	codes []string,
	excluded map[uuid.UUID]model.IneligibleReason,
) *model.PricingResult {
	discountTotal := decimal.Min(selection.Total.DiscountAmount, cart.Subtotal)

	shipping := s.cfg.ShippingFee
	if selection.Total.FreeShipping {
		shipping = decimal.Zero
	}

	return &model.PricingResult{
		Currency:      s.currency.BaseCurrency(),
		ExchangeRate:  decimal.NewFromInt(1),
		Lines:         lines,
		Subtotal:      cart.Subtotal,
		DiscountTotal: discountTotal,
		ShippingFee:   shipping,
		Total:         cart.Subtotal.Sub(discountTotal).Add(shipping),
		FreeShipping:  selection.Total.FreeShipping,
		BonusItems:    selection.Total.BonusItems,
		Applied:       selection.Applied,
		RejectedCodes: s.rejectedCodes(cart, selection, rules, codes, excluded),
		Selection:     selection,
	}
}

func (s *checkoutService) rejectedCodes(
	cart *model.Cart,
	selection model.Selection,
	rules []model.Rule,
	codes []string,
	excluded map[uuid.UUID]model.IneligibleReason,
) []model.RejectedCode {
	applied := make(map[uuid.UUID]struct{}, len(selection.Applied))
	for _, a := range selection.Applied {
		applied[a.RuleID] = struct{}{}
	}

	rejected := make([]model.RejectedCode, 0)
	for _, code := range codes {
		var rule *model.Rule
		for i := range rules {
			if rules[i].MatchesCode(code) {
				rule = &rules[i]
				break
			}
		}

		var appErr *model.AppError
		switch {
		case rule == nil:
			appErr = model.ErrUnknownCode
		default:
			if _, ok := applied[rule.ID]; ok {
				continue
			}
			if reason, ok := excluded[rule.ID]; ok {
				appErr = reason.AsAppError()
			} else if selection.IsIneffective(rule.ID) {
				appErr = model.ReasonNoEffect.AsAppError()
			} else if ok, reason := s.evaluator.Check(rule, cart); !ok {
				appErr = reason.AsAppError()
			} else {
				appErr = model.ErrNotCombinable
			}
		}

		rejected = append(rejected, model.RejectedCode{
			Code:    code,
			Reason:  appErr.Code,
			Message: appErr.Message,
		})
	}
	return rejected
}

// convert expresses every amount in the requested currency, Total recomputed from the parts
func (s *checkoutService) convert(ctx context.Context, result *model.PricingResult, currency string) (*model.PricingResult, error) {
	if currency == "" || currency == s.currency.BaseCurrency() {
		return result, nil
	}

	rate, err := s.currency.Rate(ctx, currency)
	if err != nil {
		return nil, err
	}
	conv := func(d decimal.Decimal) decimal.Decimal {
		return d.Mul(rate).Round(2)
	}

	result.Currency = currency
	result.ExchangeRate = rate
	for i := range result.Lines {
		result.Lines[i].UnitPrice = conv(result.Lines[i].UnitPrice)
		result.Lines[i].LineTotal = conv(result.Lines[i].LineTotal)
	}

	applied := make([]model.AppliedRule, len(result.Applied))
	copy(applied, result.Applied)
	for i := range applied {
		applied[i].Adjustment.DiscountAmount = conv(applied[i].Adjustment.DiscountAmount)
	}
	result.Applied = applied

	result.Subtotal = conv(result.Subtotal)
	result.DiscountTotal = conv(result.DiscountTotal)
	result.ShippingFee = conv(result.ShippingFee)
	result.Total = result.Subtotal.Sub(result.DiscountTotal).Add(result.ShippingFee)
	return result, nil
}

func usageCommits(selection model.Selection, customerID *uuid.UUID, orderID uuid.UUID) []model.UsageCommit {
	commits := make([]model.UsageCommit, 0, len(selection.Applied))
	for _, a := range selection.Applied {
		commits = append(commits, model.UsageCommit{
			RuleID:         a.RuleID,
			Source:         a.Source,
			CustomerID:     customerID,
			OrderID:        orderID,
			DiscountAmount: a.Adjustment.DiscountAmount,
		})
	}
	return commits
}

func hasCountedRules(selection model.Selection) bool {
	for _, a := range selection.Applied {
		if a.Source != model.RuleSourcePromotion {
			return true
		}
	}
	return false
}

func withoutRules(rules []model.Rule, excluded map[uuid.UUID]model.IneligibleReason) []model.Rule {
	if len(excluded) == 0 {
		return rules
	}
	kept := make([]model.Rule, 0, len(rules))
	for _, rule := range rules {
		if _, ok := excluded[rule.ID]; !ok {
			kept = append(kept, rule)
		}
	}
	return kept
}
