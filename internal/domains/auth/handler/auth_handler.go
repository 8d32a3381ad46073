package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	"shopcms-backend/internal/domains/auth/model"
	"shopcms-backend/internal/domains/auth/service"
	"shopcms-backend/internal/shared/response"
	"shopcms-backend/pkg/logger"
)

type AuthHandler struct {
	service service.ServiceInterface
}

func NewAuthHandler(service service.ServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// AdminLogin
// @Router /v1/auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VAL_INVALID_INPUT", "Dữ liệu request không hợp lệ", err.Error())
		return
	}

	resp, err := h.service.AdminLogin(c.Request.Context(), &req)
	if err != nil {
		var validationErrs validation.Errors
		switch {
		case errors.As(err, &validationErrs):
			response.ErrorWithDetails(c, http.StatusBadRequest, "VAL_INVALID_INPUT", "Dữ liệu không hợp lệ", validationErrs)
		case errors.Is(err, model.ErrInvalidCredentials):
			response.ErrorResponse(c, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", err.Error())
		default:
			logger.Error("admin login failed", err)
			response.InternalServerError(c, "Internal server error")
		}
		return
	}

	response.Success(c, http.StatusOK, resp)
}
