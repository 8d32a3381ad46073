package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/service"
	"shopcms-backend/internal/shared/middleware"
	"shopcms-backend/internal/shared/response"
	"shopcms-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler xử lý các API quản trị discount (admin-only)
type AdminHandler struct {
	service service.ServiceInterface
}

func NewAdminHandler(service service.ServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// -------------------------------------------------------------------
// CREATE & UPDATE
// -------------------------------------------------------------------

// CreateDiscount tạo discount mới
// @Router /v1/admin/discounts [post]
func (h *AdminHandler) CreateDiscount(c *gin.Context) {
	var req model.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Dữ liệu request không hợp lệ", err.Error())
		return
	}

	d, err := h.service.CreateDiscount(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	h.audit(c, "create", d.ID)
	response.Success(c, http.StatusCreated, d.ToRecord())
}

// UpdateDiscount cập nhật discount (optimistic locking qua version)
// @Router /v1/admin/discounts/:id [put]
func (h *AdminHandler) UpdateDiscount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Dữ liệu request không hợp lệ", err.Error())
		return
	}

	d, err := h.service.UpdateDiscount(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	h.audit(c, "update", d.ID)
	response.Success(c, http.StatusOK, d.ToRecord())
}

// UpdateStatus bật/tắt discount
// @Router /v1/admin/discounts/:id/status [patch]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Dữ liệu request không hợp lệ", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(c, err)
		return
	}

	if err := h.service.UpdateDiscountStatus(c.Request.Context(), id, *req.IsActive); err != nil {
		handleError(c, err)
		return
	}

	h.audit(c, "status", id)
	response.Success(c, http.StatusOK, gin.H{"id": id, "is_active": *req.IsActive})
}

// DeleteDiscount soft delete, chỉ khi chưa có ai dùng
// @Router /v1/admin/discounts/:id [delete]
func (h *AdminHandler) DeleteDiscount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteDiscount(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}

	h.audit(c, "delete", id)
	c.Status(http.StatusNoContent)
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

// GetDiscount
// @Router /v1/admin/discounts/:id [get]
func (h *AdminHandler) GetDiscount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	d, err := h.service.GetDiscountByID(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// ListDiscounts
// @Router /v1/admin/discounts [get]
func (h *AdminHandler) ListDiscounts(c *gin.Context) {
	var filter model.ListDiscountsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Query không hợp lệ", err.Error())
		return
	}

	items, total, err := h.service.ListDiscounts(c.Request.Context(), &filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, response.NewMeta(filter.Page, filter.Limit, total))
}

// GetUsageHistory
// @Router /v1/admin/discounts/:id/usage [get]
func (h *AdminHandler) GetUsageHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var filter model.UsageHistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Query không hợp lệ", err.Error())
		return
	}

	history, err := h.service.GetUsageHistory(c.Request.Context(), id, &filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, history, response.NewMeta(history.Page, history.Limit, history.Total))
}

// ExportUsage tải file xlsx lịch sử sử dụng
// @Router /v1/admin/discounts/:id/usage/export [get]
func (h *AdminHandler) ExportUsage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	export, err := h.service.ExportUsage(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	h.audit(c, "export", id)
	response.Attachment(c, export.Filename, xlsxContentType, export.Content)
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Discount ID không hợp lệ", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (h *AdminHandler) audit(c *gin.Context, action string, id uuid.UUID) {
	fields := map[string]interface{}{
		"action":      action,
		"discount_id": id.String(),
	}
	if actor := middleware.CurrentActor(c); actor != nil {
		fields["admin_id"] = actor.ID.String()
	}
	logger.Info("Admin discount action", fields)
}
