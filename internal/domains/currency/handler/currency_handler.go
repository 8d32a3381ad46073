package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcms-backend/internal/domains/currency/service"
	"shopcms-backend/internal/shared/response"
	"shopcms-backend/pkg/logger"
)

type CurrencyHandler struct {
	converter *service.Converter
}

func NewCurrencyHandler(converter *service.Converter) *CurrencyHandler {
	return &CurrencyHandler{converter: converter}
}

// ListCurrencies
// @Router /v1/currencies [get]
func (h *CurrencyHandler) ListCurrencies(c *gin.Context) {
	rates, err := h.converter.Supported(c.Request.Context())
	if err != nil {
		logger.Error("list currencies failed", err)
		response.InternalServerError(c, "Internal server error")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"base":  h.converter.BaseCurrency(),
		"rates": rates,
	})
}
