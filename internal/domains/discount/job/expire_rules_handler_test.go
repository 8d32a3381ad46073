package job

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcms-backend/internal/shared"
	"shopcms-backend/internal/shared/utils"
)

type fakeExpirer struct {
	count int
	err   error
	calls int
}

func (f *fakeExpirer) DeactivateExpired(ctx context.Context) (int, error) {
	f.calls++
	return f.count, f.err
}

func TestExpireRulesHandler(t *testing.T) {
	task, err := utils.NewTask(shared.TypeExpireRules, shared.ExpireRulesPayload{})
	require.NoError(t, err)

	t.Run("sweeps both sources", func(t *testing.T) {
		discounts := &fakeExpirer{count: 2}
		promotions := &fakeExpirer{count: 1}

		require.NoError(t, NewExpireRulesHandler(discounts, promotions).ProcessTask(context.Background(), task))
		assert.Equal(t, 1, discounts.calls)
		assert.Equal(t, 1, promotions.calls)
	})

	t.Run("a failing sweep does not skip the other", func(t *testing.T) {
		discounts := &fakeExpirer{err: errors.New("db down")}
		promotions := &fakeExpirer{}

		err := NewExpireRulesHandler(discounts, promotions).ProcessTask(context.Background(), task)
		assert.Error(t, err)
		assert.Equal(t, 1, promotions.calls)
	})

	t.Run("empty scheduler payload", func(t *testing.T) {
		h := NewExpireRulesHandler(&fakeExpirer{}, &fakeExpirer{})
		assert.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeExpireRules, nil)))
	})
}
