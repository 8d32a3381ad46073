package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrRateNotFound        = errors.New("exchange rate not found")
)

// ExchangeRate: 1 unit of the base currency = Rate units of Code
type ExchangeRate struct {
	Code      string          `json:"code"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}
