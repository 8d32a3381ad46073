package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRates(t *testing.T) {
	rates, err := ParseRates("EUR:1, usd:1.08,GBP:0.86")
	require.NoError(t, err)

	assert.Len(t, rates, 3)
	assert.True(t, rates["USD"].Equal(decimal.RequireFromString("1.08")))
	assert.True(t, rates["EUR"].Equal(decimal.NewFromInt(1)))
}

func TestParseRates_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing separator": "EUR1",
		"bad code":          "EURO:1",
		"negative rate":     "EUR:-1",
		"not a number":      "EUR:abc",
		"empty":             "",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRates(raw)
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "json")
	t.Setenv("CURRENCY_RATES", "EUR:1,USD:1.08")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverJSON, cfg.Storage.Driver)
	assert.Equal(t, "EUR", cfg.Currency.Base)
	assert.Equal(t, []string{"EUR", "USD"}, cfg.Currency.SupportedCurrencies())
	assert.Equal(t, 5, cfg.Checkout.MaxFinalizeAttempts)
}
