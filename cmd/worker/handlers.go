package main

import (
	"github.com/hibiken/asynq"

	discountJob "shopcms-backend/internal/domains/discount/job"
	"shopcms-backend/internal/shared"
	"shopcms-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	expireRules *discountJob.ExpireRulesHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		expireRules: discountJob.NewExpireRulesHandler(c.DiscountService, c.PromotionService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Maintenance tasks
	mux.HandleFunc(shared.TypeExpireRules, h.expireRules.ProcessTask)
}
