package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"shopcms-backend/internal/shared"
	"shopcms-backend/internal/shared/utils"
	"shopcms-backend/pkg/logger"
)

// ================================================
// EXPIRE RULES JOB HANDLER
// ================================================

// Expirer switches off rules whose end_date has passed.
// Implemented by the discount and promotion services.
type Expirer interface {
	DeactivateExpired(ctx context.Context) (int, error)
}

// ExpireRulesHandler runs the scheduled expiry sweep
type ExpireRulesHandler struct {
	discounts  Expirer
	promotions Expirer
}

func NewExpireRulesHandler(discounts, promotions Expirer) *ExpireRulesHandler {
	return &ExpireRulesHandler{discounts: discounts, promotions: promotions}
}

// ProcessTask
// 1. Deactivate expired discounts (invalidates the rule cache when something changed)
// 2. Deactivate expired promotions
// A failure in one sweep does not skip the other; the task is retried if either failed.
func (h *ExpireRulesHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ExpireRulesPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return err
	}

	start := time.Now()
	logger.Info("Starting expire rules job", map[string]interface{}{
		"requested_at": payload.RequestedAt,
	})

	discounts, discountErr := h.discounts.DeactivateExpired(ctx)
	if discountErr != nil {
		logger.Error("Expire discounts failed", discountErr)
	}

	promotions, promotionErr := h.promotions.DeactivateExpired(ctx)
	if promotionErr != nil {
		logger.Error("Expire promotions failed", promotionErr)
	}

	logger.Info("Expire rules job finished", map[string]interface{}{
		"discounts_deactivated":  discounts,
		"promotions_deactivated": promotions,
		"duration_ms":            time.Since(start).Milliseconds(),
	})

	if discountErr != nil || promotionErr != nil {
		return fmt.Errorf("expire rules: discounts=%v promotions=%v", discountErr, promotionErr)
	}
	return nil
}
