package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/repository"
	"shopcms-backend/pkg/cache"
)

func newTestDiscountService(t *testing.T) (*discountService, *repository.JSONRepository) {
	t.Helper()
	repo := newJSONRepo(t)
	svc := NewDiscountService(repo, repo, cache.NewMemoryCache(), time.Minute).(*discountService)
	svc.now = fixedClock
	return svc, repo
}

func summerRequest() *model.CreateDiscountRequest {
	return &model.CreateDiscountRequest{
		Code:  " summer10 ",
		Name:  "Summer sale",
		Type:  "percentage",
		Value: dec("10"),
	}
}

func TestDiscountService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDiscountService(t)

	d, err := svc.CreateDiscount(ctx, summerRequest())
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", d.Code)
	assert.True(t, d.Active)
	assert.Equal(t, model.AppliesToAll, d.Target.AppliesTo)

	_, err = svc.CreateDiscount(ctx, summerRequest())
	assert.ErrorIs(t, err, model.ErrDuplicateCode)
}

func TestDiscountService_CreateRejectsInvalidRules(t *testing.T) {
	svc, _ := newTestDiscountService(t)

	tests := []struct {
		name  string
		mut   func(r *model.CreateDiscountRequest)
		field string
	}{
		{"percentage above 100", func(r *model.CreateDiscountRequest) { r.Value = dec("150") }, "value"},
		{"targets without ids", func(r *model.CreateDiscountRequest) { r.AppliesTo = "products" }, "target_ids"},
		{"bxgy without quantities", func(r *model.CreateDiscountRequest) { r.Type = "buy_x_get_y" }, "buy_quantity"},
		{"inverted purchase bounds", func(r *model.CreateDiscountRequest) {
			r.MinPurchase = dec("100")
			r.MaxPurchase = dec("50")
		}, "max_purchase"},
		{"end before start", func(r *model.CreateDiscountRequest) {
			start := testNow
			end := testNow.Add(-time.Hour)
			r.StartDate, r.EndDate = &start, &end
		}, "end_date"},
		{"bad code format", func(r *model.CreateDiscountRequest) { r.Code = "HELLO WORLD" }, "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := summerRequest()
			tt.mut(req)

			_, err := svc.CreateDiscount(context.Background(), req)
			require.Error(t, err)
			var verrs validation.Errors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs, tt.field)
		})
	}
}

func TestDiscountService_UpdateRules(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestDiscountService(t)

	d, err := svc.CreateDiscount(ctx, summerRequest())
	require.NoError(t, err)

	name := "Summer sale 2"
	updated, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{Name: &name, Version: d.Version})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 2, updated.Version)

	t.Run("stale version", func(t *testing.T) {
		_, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{Name: &name, Version: 1})
		assert.ErrorIs(t, err, model.ErrVersionConflict)
	})

	// redeem twice
	for i := 0; i < 2; i++ {
		_, err := repo.CommitUsages(ctx, []model.UsageCommit{{RuleID: d.ID, Source: model.RuleSourceDiscount, OrderID: uuid.New()}})
		require.NoError(t, err)
	}
	current, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)

	t.Run("value frozen once used", func(t *testing.T) {
		value := dec("20")
		_, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{Value: &value, Version: current.Version})
		assert.ErrorIs(t, err, model.ErrFrozenField)
	})

	t.Run("max_uses below used_count", func(t *testing.T) {
		maxUses := 1
		_, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{MaxUses: &maxUses, Version: current.Version})
		assert.ErrorIs(t, err, model.ErrMaxUsesBelowUsed)
	})

	t.Run("non-rule fields stay editable", func(t *testing.T) {
		priority := 7
		got, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{Priority: &priority, Version: current.Version})
		require.NoError(t, err)
		assert.Equal(t, 7, got.Priority)
		assert.Equal(t, 2, got.Limits.UsedCount)
	})
}

func TestDiscountService_UpdateClearsSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDiscountService(t)

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	req := summerRequest()
	req.StartDate = &start
	req.EndDate = &end
	d, err := svc.CreateDiscount(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, d.Schedule.EndDate)

	t.Run("set and clear together is rejected", func(t *testing.T) {
		_, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{EndDate: &end, ClearEndDate: true, Version: d.Version})
		assert.Error(t, err)
	})

	// omitted dates stay as they are
	name := "Summer sale, no end"
	kept, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{Name: &name, Version: d.Version})
	require.NoError(t, err)
	require.NotNil(t, kept.Schedule.EndDate)

	open, err := svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{ClearEndDate: true, Version: kept.Version})
	require.NoError(t, err)
	assert.Nil(t, open.Schedule.EndDate)
	require.NotNil(t, open.Schedule.StartDate)
	assert.True(t, start.Equal(*open.Schedule.StartDate))

	open, err = svc.UpdateDiscount(ctx, d.ID, &model.UpdateDiscountRequest{ClearStartDate: true, Version: open.Version})
	require.NoError(t, err)
	assert.Nil(t, open.Schedule.StartDate)

	stored, err := svc.GetDiscountByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.StartDate)
	assert.Nil(t, stored.EndDate)
}

func TestDiscountService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestDiscountService(t)

	unused, err := svc.CreateDiscount(ctx, summerRequest())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDiscount(ctx, unused.ID))

	_, err = svc.GetDiscountByID(ctx, unused.ID)
	assert.ErrorIs(t, err, model.ErrDiscountNotFound)

	// the code is free again
	used, err := svc.CreateDiscount(ctx, summerRequest())
	require.NoError(t, err)
	_, err = repo.CommitUsages(ctx, []model.UsageCommit{{RuleID: used.ID, Source: model.RuleSourceDiscount, OrderID: uuid.New()}})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteDiscount(ctx, used.ID), model.ErrCannotDeleteUsed)
}

func TestDiscountService_CandidateRulesCache(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestDiscountService(t)

	autoReq := &model.CreateDiscountRequest{Name: "Free shipping", Type: "free_shipping", AutoApply: true}
	auto, err := svc.CreateDiscount(ctx, autoReq)
	require.NoError(t, err)
	_, err = svc.CreateDiscount(ctx, summerRequest())
	require.NoError(t, err)

	rules, err := svc.CandidateRules(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, auto.ID, rules[0].ID)

	rules, err = svc.CandidateRules(ctx, []string{"SUMMER10"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	// a write behind the service's back is hidden by the cache
	sneaky := seedDiscount(t, repo, "", 0)
	rules, err = svc.CandidateRules(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	// an admin write invalidates it
	require.NoError(t, svc.UpdateDiscountStatus(ctx, auto.ID, false))
	rules, err = svc.CandidateRules(ctx, nil)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, sneaky.ID)
}

func TestDiscountService_ListAndStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDiscountService(t)

	_, err := svc.CreateDiscount(ctx, summerRequest())
	require.NoError(t, err)
	inactive := false
	other := summerRequest()
	other.Code = "WINTER"
	other.IsActive = &inactive
	_, err = svc.CreateDiscount(ctx, other)
	require.NoError(t, err)

	items, total, err := svc.ListDiscounts(ctx, &model.ListDiscountsFilter{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "WINTER", items[0].Code)
	assert.Equal(t, model.DiscountStatusInactive, items[0].Status)
}

func TestDiscountService_UsageHistoryAndExport(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestDiscountService(t)

	d, err := svc.CreateDiscount(ctx, summerRequest())
	require.NoError(t, err)
	customer := uuid.New()
	for _, amount := range []string{"5", "7.5"} {
		_, err := repo.CommitUsages(ctx, []model.UsageCommit{{
			RuleID:         d.ID,
			Source:         model.RuleSourceDiscount,
			CustomerID:     &customer,
			OrderID:        uuid.New(),
			DiscountAmount: dec(amount),
		}})
		require.NoError(t, err)
	}

	history, err := svc.GetUsageHistory(ctx, d.ID, &model.UsageHistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, history.Total)
	assert.Equal(t, 50, history.Limit)
	assert.Equal(t, "12.5", history.Stats.TotalDiscount.String())
	assert.Equal(t, 1, history.Stats.UniqueCustomers)

	export, err := svc.ExportUsage(ctx, d.ID)
	require.NoError(t, err)
	assert.Contains(t, export.Filename, "SUMMER10")

	f, err := excelize.OpenReader(bytes.NewReader(export.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Usage")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "Order ID", rows[0][1])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", summary[1][1])
}

func TestDiscountService_DeactivateExpired(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDiscountService(t)

	end := testNow.Add(-time.Hour)
	req := summerRequest()
	req.EndDate = &end
	d, err := svc.CreateDiscount(ctx, req)
	require.NoError(t, err)

	count, err := svc.DeactivateExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := svc.GetDiscountByID(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
