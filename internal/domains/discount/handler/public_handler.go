package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/service"
	"shopcms-backend/internal/shared/middleware"
	"shopcms-backend/internal/shared/response"
)

// PublicHandler - storefront pricing endpoints
type PublicHandler struct {
	checkout service.CheckoutServiceInterface
}

func NewPublicHandler(checkout service.CheckoutServiceInterface) *PublicHandler {
	return &PublicHandler{checkout: checkout}
}

// PreviewCart tính giá giỏ hàng với các mã đã nhập, không ghi nhận usage
// @Router /v1/cart/preview [post]
func (h *PublicHandler) PreviewCart(c *gin.Context) {
	var req model.PriceCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Dữ liệu request không hợp lệ", err.Error())
		return
	}
	// Guest checkout: actor is optional
	req.CustomerID = middleware.CurrentActorID(c)

	result, err := h.checkout.PreviewCart(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// FinalizeOrder chốt discount cho đơn hàng và ghi nhận usage.
// Customer tokens are issued by the external account service, signed with the
// shared JWT_SECRET; this service only issues the admin token.
// @Router /v1/checkout/finalize [post]
func (h *PublicHandler) FinalizeOrder(c *gin.Context) {
	var req model.FinalizeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Dữ liệu request không hợp lệ", err.Error())
		return
	}

	customerID := middleware.CurrentActorID(c)
	if customerID == nil {
		response.Unauthorized(c, "Authentication required")
		return
	}
	req.CustomerID = customerID

	result, err := h.checkout.FinalizeOrder(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
