package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcms-backend/internal/config"
	"shopcms-backend/internal/domains/currency/model"
	"shopcms-backend/pkg/cache"
)

type fakeRateRepo struct {
	rates map[string]decimal.Decimal
	calls int
	err   error
}

func (f *fakeRateRepo) GetRate(ctx context.Context, code string) (*model.ExchangeRate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rate, ok := f.rates[code]
	if !ok {
		return nil, model.ErrRateNotFound
	}
	return &model.ExchangeRate{Code: code, Rate: rate}, nil
}

func newTestConverter(repo *fakeRateRepo) *Converter {
	cfg := config.CurrencyConfig{
		Base: "EUR",
		Rates: map[string]decimal.Decimal{
			"EUR": decimal.NewFromInt(1),
			"USD": decimal.RequireFromString("1.08"),
			"GBP": decimal.RequireFromString("0.86"),
		},
		CacheTTL: time.Hour,
	}
	return NewConverter(cfg, repo, cache.NewMemoryCache())
}

func TestConverter_Rate(t *testing.T) {
	repo := &fakeRateRepo{rates: map[string]decimal.Decimal{"GBP": decimal.RequireFromString("0.9")}}
	c := newTestConverter(repo)
	ctx := context.Background()

	t.Run("base currency is identity", func(t *testing.T) {
		rate, err := c.Rate(ctx, "eur")
		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	})

	t.Run("config fallback", func(t *testing.T) {
		rate, err := c.Rate(ctx, "USD")
		require.NoError(t, err)
		assert.Equal(t, "1.08", rate.String())
	})

	t.Run("stored override wins and is cached", func(t *testing.T) {
		rate, err := c.Rate(ctx, "GBP")
		require.NoError(t, err)
		assert.Equal(t, "0.9", rate.String())

		calls := repo.calls
		_, err = c.Rate(ctx, "GBP")
		require.NoError(t, err)
		assert.Equal(t, calls, repo.calls)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := c.Rate(ctx, "JPY")
		assert.ErrorIs(t, err, model.ErrUnsupportedCurrency)
	})
}

func TestConverter_RepositoryFailure(t *testing.T) {
	c := newTestConverter(&fakeRateRepo{err: errors.New("db down")})

	_, err := c.Rate(context.Background(), "USD")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrUnsupportedCurrency)
}

func TestConverter_Convert(t *testing.T) {
	c := newTestConverter(&fakeRateRepo{})

	got, err := c.Convert(context.Background(), decimal.RequireFromString("45.00"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "48.6", got.String())

	supported, err := c.Supported(context.Background())
	require.NoError(t, err)
	require.Len(t, supported, 3)
	assert.Equal(t, "EUR", supported[0].Code)
}
