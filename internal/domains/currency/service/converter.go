package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopcms-backend/internal/config"
	"shopcms-backend/internal/domains/currency/model"
	"shopcms-backend/internal/domains/currency/repository"
	"shopcms-backend/pkg/cache"
	"shopcms-backend/pkg/logger"
)

const rateCacheKeyPrefix = "currency:rate:"

// Converter converts base-currency amounts for display.
// Rate lookup order: cache, stored override, env config.
type Converter struct {
	base     string
	fallback map[string]decimal.Decimal
	repo     repository.RateRepository
	cache    cache.Cache
	ttl      time.Duration
}

func NewConverter(cfg config.CurrencyConfig, repo repository.RateRepository, cache cache.Cache) *Converter {
	return &Converter{
		base:     strings.ToUpper(cfg.Base),
		fallback: cfg.Rates,
		repo:     repo,
		cache:    cache,
		ttl:      cfg.CacheTTL,
	}
}

func (c *Converter) BaseCurrency() string {
	return c.base
}

// Rate returns how many units of code one base unit buys
func (c *Converter) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == c.base {
		return decimal.NewFromInt(1), nil
	}

	key := rateCacheKeyPrefix + code
	var cached decimal.Decimal
	if hit, err := c.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	rate, err := c.lookup(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.cache.Set(ctx, key, rate, c.ttl); err != nil {
		logger.Warn("Currency cache write failed", map[string]interface{}{
			"currency": code,
			"error":    err.Error(),
		})
	}
	return rate, nil
}

func (c *Converter) lookup(ctx context.Context, code string) (decimal.Decimal, error) {
	stored, err := c.repo.GetRate(ctx, code)
	switch {
	case err == nil && stored.Rate.IsPositive():
		return stored.Rate, nil
	case err != nil && !errors.Is(err, model.ErrRateNotFound):
		return decimal.Zero, fmt.Errorf("get stored rate: %w", err)
	}

	if rate, ok := c.fallback[code]; ok && rate.IsPositive() {
		return rate, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", model.ErrUnsupportedCurrency, code)
}

// Convert turns a base-currency amount into code, rounded to cents
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, code string) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}

// Supported lists every currency that can be requested, with its rate
func (c *Converter) Supported(ctx context.Context) ([]model.ExchangeRate, error) {
	codes := config.CurrencyConfig{Rates: c.fallback}.SupportedCurrencies()

	rates := make([]model.ExchangeRate, 0, len(codes))
	for _, code := range codes {
		rate, err := c.Rate(ctx, code)
		if err != nil {
			return nil, err
		}
		rates = append(rates, model.ExchangeRate{Code: code, Rate: rate})
	}
	return rates, nil
}
