package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcms-backend/internal/domains/promotion/model"
	"shopcms-backend/internal/domains/promotion/service"
	"shopcms-backend/internal/shared/response"
)

// AdminHandler xử lý các API quản trị (admin-only)
type AdminHandler struct {
	service service.ServiceInterface
}

func NewAdminHandler(service service.ServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// CreatePromotion tạo promotion mới
// @Router /v1/admin/promotions [post]
func (h *AdminHandler) CreatePromotion(c *gin.Context) {
	var req model.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VAL_INVALID_INPUT", "Dữ liệu request không hợp lệ", err.Error())
		return
	}

	promo, err := h.service.CreatePromotion(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, promo)
}

// UpdatePromotion cập nhật promotion
// @Router /v1/admin/promotions/:id [put]
func (h *AdminHandler) UpdatePromotion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VAL_INVALID_INPUT", "Dữ liệu request không hợp lệ", err.Error())
		return
	}

	promo, err := h.service.UpdatePromotion(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promo)
}

// GetPromotion
// @Router /v1/admin/promotions/:id [get]
func (h *AdminHandler) GetPromotion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	promo, err := h.service.GetPromotionByID(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promo)
}

// ListPromotions
// @Router /v1/admin/promotions [get]
func (h *AdminHandler) ListPromotions(c *gin.Context) {
	var filter model.ListPromotionsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VAL_INVALID_INPUT", "Query không hợp lệ", err.Error())
		return
	}

	items, total, err := h.service.ListPromotions(c.Request.Context(), &filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, response.NewMeta(filter.Page, filter.Limit, total))
}

// DeletePromotion soft delete
// @Router /v1/admin/promotions/:id [delete]
func (h *AdminHandler) DeletePromotion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePromotion(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
