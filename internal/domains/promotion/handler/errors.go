package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopcms-backend/internal/domains/promotion/model"
	"shopcms-backend/internal/shared/response"
	"shopcms-backend/pkg/logger"
)

func handleError(c *gin.Context, err error) {
	var validationErrs validation.Errors

	switch {
	case errors.As(err, &validationErrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VAL_INVALID_INPUT", "Dữ liệu không hợp lệ", validationErrs)
	case errors.Is(err, model.ErrPromotionNotFound):
		response.ErrorResponse(c, http.StatusNotFound, "RES_PROMOTION_NOT_FOUND", err.Error())
	case errors.Is(err, model.ErrVersionConflict):
		response.ErrorResponse(c, http.StatusConflict, "BIZ_UPDATE_CONFLICT", err.Error())
	case errors.Is(err, model.ErrInvalidPromotionType):
		response.ErrorResponse(c, http.StatusBadRequest, "VAL_INVALID_INPUT", err.Error())
	default:
		logger.Error("Unhandled promotion error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "SYS_INTERNAL_ERROR", "Đã có lỗi xảy ra, vui lòng thử lại sau")
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VAL_INVALID_INPUT", "Promotion ID không hợp lệ", err.Error())
		return uuid.Nil, false
	}
	return id, true
}
