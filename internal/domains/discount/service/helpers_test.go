package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/repository"
	"shopcms-backend/internal/infrastructure/filestore"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func percentRule(percent string) model.Rule {
	return model.Rule{
		ID:     uuid.New(),
		Source: model.RuleSourceDiscount,
		Name:   "percent " + percent,
		Effect: model.PercentageOff{Percent: dec(percent)},
		Target: model.Targeting{AppliesTo: model.AppliesToAll},
		Conditions: model.Conditions{
			CustomerEligibility: model.CustomerEligibilityAll,
		},
		Active:    true,
		AutoApply: true,
	}
}

func fixedRule(amount string) model.Rule {
	r := percentRule("1")
	r.Name = "fixed " + amount
	r.Effect = model.FixedOff{Amount: dec(amount)}
	return r
}

func line(id string, unitPrice string, qty int) model.LineItem {
	return model.LineItem{
		LineID:     id,
		ProductID:  uuid.New(),
		CategoryID: uuid.New(),
		UnitPrice:  dec(unitPrice),
		Quantity:   qty,
	}
}

func cartOf(items ...model.LineItem) model.Cart {
	return model.NewCart(items, model.Customer{}, nil)
}

func newJSONRepo(t *testing.T) *repository.JSONRepository {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	return repository.NewJSONRepository(store)
}

func seedDiscount(t *testing.T, repo *repository.JSONRepository, code string, maxUses int) *model.Discount {
	t.Helper()
	d := &model.Discount{Rule: percentRule("10")}
	d.Code = code
	d.AutoApply = code == ""
	d.Limits.MaxUses = maxUses
	require.NoError(t, repo.Create(context.Background(), d))
	return d
}
