package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcms-backend/internal/domains/discount/model"
)

func TestLedger_CommitUsage(t *testing.T) {
	ctx := context.Background()
	repo := newJSONRepo(t)
	ledger := NewLedger(repo)
	d := seedDiscount(t, repo, "ONCE", 1)

	usage, err := ledger.CommitUsage(ctx, model.UsageCommit{
		RuleID:         d.ID,
		Source:         model.RuleSourceDiscount,
		OrderID:        uuid.New(),
		DiscountAmount: dec("5"),
	})
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.Equal(t, d.ID, usage.DiscountID)

	_, err = ledger.CommitUsage(ctx, model.UsageCommit{RuleID: d.ID, Source: model.RuleSourceDiscount, OrderID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrUsageExceeded)

	var exceeded *model.UsageExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, d.ID, exceeded.RuleID)

	stored, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Limits.UsedCount)
}

func TestLedger_PromotionCommitIsNoop(t *testing.T) {
	ledger := NewLedger(newJSONRepo(t))

	usage, err := ledger.CommitUsage(context.Background(), model.UsageCommit{
		RuleID:  uuid.New(),
		Source:  model.RuleSourcePromotion,
		OrderID: uuid.New(),
	})
	assert.NoError(t, err)
	assert.Nil(t, usage)
}

func TestLedger_ConcurrentCommitsRespectCap(t *testing.T) {
	ctx := context.Background()
	repo := newJSONRepo(t)
	ledger := NewLedger(repo)
	d := seedDiscount(t, repo, "RACE", 1)

	const workers = 25
	var (
		wg        sync.WaitGroup
		successes int32
		exceeded  int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.CommitUsage(ctx, model.UsageCommit{
				RuleID:  d.ID,
				Source:  model.RuleSourceDiscount,
				OrderID: uuid.New(),
			})
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, model.ErrUsageExceeded):
				atomic.AddInt32(&exceeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(workers-1), exceeded)

	stored, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Limits.UsedCount)
}

func TestLedger_CommitAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newJSONRepo(t)
	ledger := NewLedger(repo)
	open := seedDiscount(t, repo, "OPEN", 0)
	full := seedDiscount(t, repo, "FULL", 1)

	_, err := ledger.CommitUsage(ctx, model.UsageCommit{RuleID: full.ID, Source: model.RuleSourceDiscount, OrderID: uuid.New()})
	require.NoError(t, err)

	orderID := uuid.New()
	_, err = ledger.CommitAll(ctx, []model.UsageCommit{
		{RuleID: open.ID, Source: model.RuleSourceDiscount, OrderID: orderID},
		{RuleID: full.ID, Source: model.RuleSourceDiscount, OrderID: orderID},
	})
	assert.ErrorIs(t, err, model.ErrUsageExceeded)

	stored, err := repo.FindByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Limits.UsedCount)
}
