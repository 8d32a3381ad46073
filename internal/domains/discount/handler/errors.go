package handler

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	catalogModel "shopcms-backend/internal/domains/catalog/model"
	currencyModel "shopcms-backend/internal/domains/currency/model"
	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/shared/middleware"
	"shopcms-backend/internal/shared/response"
	"shopcms-backend/pkg/logger"
)

// handleError maps domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	var (
		validationErrs validation.Errors
		appErr         *model.AppError
	)

	switch {
	case errors.As(err, &validationErrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "Dữ liệu không hợp lệ", validationErrs)

	case errors.As(err, &appErr):
		if len(appErr.Details) == 0 {
			response.ErrorResponse(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message)
			return
		}
		response.ErrorWithDetails(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message, appErr.Details)

	case errors.Is(err, model.ErrDiscountNotFound):
		response.ErrorResponse(c, http.StatusNotFound, "RES_DISCOUNT_NOT_FOUND", err.Error())
	case errors.Is(err, catalogModel.ErrProductNotFound):
		response.ErrorResponse(c, http.StatusBadRequest, "RES_PRODUCT_NOT_FOUND", err.Error())
	case errors.Is(err, catalogModel.ErrProductUnavailable):
		response.ErrorResponse(c, http.StatusBadRequest, "BIZ_PRODUCT_UNAVAILABLE", err.Error())
	case errors.Is(err, currencyModel.ErrUnsupportedCurrency):
		response.ErrorResponse(c, http.StatusBadRequest, "VAL_UNSUPPORTED_CURRENCY", err.Error())

	case errors.Is(err, model.ErrDuplicateCode):
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodePromoDuplicateCode), err.Error())
	case errors.Is(err, model.ErrVersionConflict):
		response.ErrorResponse(c, http.StatusConflict, string(model.ErrCodePromoUpdateConflict), err.Error())
	case errors.Is(err, model.ErrCannotDeleteUsed):
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodePromoCannotDelete), err.Error())
	case errors.Is(err, model.ErrFrozenField), errors.Is(err, model.ErrMaxUsesBelowUsed):
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodePromoFrozenField), err.Error())
	case errors.Is(err, model.ErrInvalidDiscountType):
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), err.Error())
	case errors.Is(err, model.ErrDuplicateUsage):
		response.ErrorResponse(c, http.StatusConflict, string(model.ErrCodePromoDuplicateUsage), err.Error())
	case errors.Is(err, model.ErrFinalizeRetriesExhausted):
		response.ErrorResponse(c, http.StatusConflict, string(model.ErrCodeFinalizeFailed), err.Error())

	default:
		logger.ErrorWithFields("Unhandled discount error", err, map[string]interface{}{
			"path":       c.FullPath(),
			"request_id": c.GetString(middleware.ContextKeyRequestID),
		})
		response.ErrorResponse(c, http.StatusInternalServerError, string(model.ErrCodeInternalError), "Đã có lỗi xảy ra, vui lòng thử lại sau")
	}
}
