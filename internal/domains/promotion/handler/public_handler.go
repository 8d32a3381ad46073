package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcms-backend/internal/domains/promotion/service"
	"shopcms-backend/internal/shared/response"
)

// PublicHandler xử lý API public cho storefront
type PublicHandler struct {
	service service.ServiceInterface
}

func NewPublicHandler(service service.ServiceInterface) *PublicHandler {
	return &PublicHandler{service: service}
}

// ListActivePromotions trả về banner/popup và các chương trình giảm giá đang chạy
// @Router /v1/promotions/active [get]
func (h *PublicHandler) ListActivePromotions(c *gin.Context) {
	active, err := h.service.ListActivePromotions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, active)
}
