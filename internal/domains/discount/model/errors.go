package model

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

var (
	ErrDiscountNotFound    = errors.New("discount not found")
	ErrDuplicateCode       = errors.New("discount code already exists")
	ErrVersionConflict     = errors.New("discount was modified by another request")
	ErrCannotDeleteUsed    = errors.New("discount has been used and cannot be deleted")
	ErrInvalidDiscountType = errors.New("invalid discount type")
	ErrFrozenField         = errors.New("field cannot change once the discount has been used")
	ErrMaxUsesBelowUsed    = errors.New("max_uses cannot be lower than used_count")
	ErrDuplicateUsage      = errors.New("discount already redeemed for this order")

	// ErrUsageExceeded: the global cap was reached between selection and commit
	ErrUsageExceeded = errors.New("discount usage limit exceeded")
	// ErrCustomerUsageExceeded is a UsageExceeded condition for the per-customer cap
	ErrCustomerUsageExceeded = fmt.Errorf("%w: per-customer limit reached", ErrUsageExceeded)

	ErrFinalizeRetriesExhausted = errors.New("could not settle discounts for the order")
)

// UsageExceededError identifies the rule whose counter could not be incremented
type UsageExceededError struct {
	RuleID      uuid.UUID
	PerCustomer bool
}

func (e *UsageExceededError) Error() string {
	if e.PerCustomer {
		return fmt.Sprintf("discount %s: %s", e.RuleID, ErrCustomerUsageExceeded.Error())
	}
	return fmt.Sprintf("discount %s: %s", e.RuleID, ErrUsageExceeded.Error())
}

func (e *UsageExceededError) Unwrap() error {
	if e.PerCustomer {
		return ErrCustomerUsageExceeded
	}
	return ErrUsageExceeded
}

// -------------------------------------------------------------------
// APP ERRORS
// -------------------------------------------------------------------

type ErrorCode string

const (
	// Storefront eligibility (400)
	ErrCodePromoNotFound            ErrorCode = "PROMO_NOT_FOUND"
	ErrCodePromoInactive            ErrorCode = "PROMO_INACTIVE"
	ErrCodePromoNotStarted          ErrorCode = "PROMO_NOT_STARTED"
	ErrCodePromoExpired             ErrorCode = "PROMO_EXPIRED"
	ErrCodePromoUsageLimitExceeded  ErrorCode = "PROMO_USAGE_LIMIT_EXCEEDED"
	ErrCodePromoUserLimitExceeded   ErrorCode = "PROMO_USER_LIMIT_EXCEEDED"
	ErrCodePromoMinOrderNotMet      ErrorCode = "PROMO_MIN_ORDER_NOT_MET"
	ErrCodePromoMaxOrderExceeded    ErrorCode = "PROMO_MAX_ORDER_EXCEEDED"
	ErrCodePromoMinItemsNotMet      ErrorCode = "PROMO_MIN_ITEMS_NOT_MET"
	ErrCodePromoNotApplicable       ErrorCode = "PROMO_CATEGORY_NOT_APPLICABLE"
	ErrCodePromoCustomerNotEligible ErrorCode = "PROMO_CUSTOMER_NOT_ELIGIBLE"
	ErrCodePromoFirstOrderOnly      ErrorCode = "PROMO_FIRST_ORDER_ONLY"
	ErrCodePromoNoEffect            ErrorCode = "PROMO_NO_EFFECT"
	ErrCodePromoNotCombinable       ErrorCode = "PROMO_NOT_COMBINABLE"

	// Admin operations
	ErrCodePromoDuplicateCode  ErrorCode = "VAL_DUPLICATE_CODE"           // 400
	ErrCodePromoUpdateConflict ErrorCode = "BIZ_UPDATE_CONFLICT"          // 409
	ErrCodePromoCannotDelete   ErrorCode = "BIZ_CANNOT_DELETE_USED_PROMO" // 400
	ErrCodePromoFrozenField    ErrorCode = "BIZ_FROZEN_FIELD"             // 400
	ErrCodePromoDuplicateUsage ErrorCode = "BIZ_DUPLICATE_USAGE"          // 409

	// Checkout
	ErrCodeFinalizeFailed ErrorCode = "BIZ_FINALIZE_FAILED" // 409

	ErrCodeValidationFailed ErrorCode = "VAL_INVALID_INPUT"  // 400
	ErrCodeInternalError    ErrorCode = "SYS_INTERNAL_ERROR" // 500
)

type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code ErrorCode, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithDetails returns a copy carrying extra details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// -------------------------------------------------------------------
// INELIGIBILITY REASONS
// -------------------------------------------------------------------

// IneligibleReason names the first check a rule failed
type IneligibleReason string

const (
	ReasonNone                IneligibleReason = ""
	ReasonNoEffect            IneligibleReason = "no_effect"
	ReasonInactive            IneligibleReason = "inactive"
	ReasonNotStarted          IneligibleReason = "not_started"
	ReasonExpired             IneligibleReason = "expired"
	ReasonUsageLimit          IneligibleReason = "usage_limit"
	ReasonBelowMinPurchase    IneligibleReason = "below_min_purchase"
	ReasonAboveMaxPurchase    IneligibleReason = "above_max_purchase"
	ReasonTooFewItems         IneligibleReason = "too_few_items"
	ReasonNotApplicable       IneligibleReason = "not_applicable"
	ReasonCustomerNotEligible IneligibleReason = "customer_not_eligible"
	ReasonFirstPurchaseOnly   IneligibleReason = "first_purchase_only"
	ReasonCustomerLimit       IneligibleReason = "customer_limit"
)

var reasonErrors = map[IneligibleReason]*AppError{
	ReasonNoEffect:            NewAppError(ErrCodePromoNoEffect, "This code has no effect", http.StatusBadRequest),
	ReasonInactive:            NewAppError(ErrCodePromoInactive, "This code is not active", http.StatusBadRequest),
	ReasonNotStarted:          NewAppError(ErrCodePromoNotStarted, "This code is not valid yet", http.StatusBadRequest),
	ReasonExpired:             NewAppError(ErrCodePromoExpired, "This code has expired", http.StatusBadRequest),
	ReasonUsageLimit:          NewAppError(ErrCodePromoUsageLimitExceeded, "This code has reached its usage limit", http.StatusBadRequest),
	ReasonBelowMinPurchase:    NewAppError(ErrCodePromoMinOrderNotMet, "Your order does not reach the minimum amount for this code", http.StatusBadRequest),
	ReasonAboveMaxPurchase:    NewAppError(ErrCodePromoMaxOrderExceeded, "Your order exceeds the maximum amount for this code", http.StatusBadRequest),
	ReasonTooFewItems:         NewAppError(ErrCodePromoMinItemsNotMet, "Add more items to use this code", http.StatusBadRequest),
	ReasonNotApplicable:       NewAppError(ErrCodePromoNotApplicable, "This code does not apply to the items in your cart", http.StatusBadRequest),
	ReasonCustomerNotEligible: NewAppError(ErrCodePromoCustomerNotEligible, "Your account is not eligible for this code", http.StatusBadRequest),
	ReasonFirstPurchaseOnly:   NewAppError(ErrCodePromoFirstOrderOnly, "This code is valid on a first order only", http.StatusBadRequest),
	ReasonCustomerLimit:       NewAppError(ErrCodePromoUserLimitExceeded, "You have already used this code the maximum number of times", http.StatusBadRequest),
}

// AsAppError turns a reason into the storefront message, nil for ReasonNone
func (r IneligibleReason) AsAppError() *AppError {
	if r == ReasonNone {
		return nil
	}
	if appErr, ok := reasonErrors[r]; ok {
		return appErr
	}
	return NewAppError(ErrCodePromoNotApplicable, "This code cannot be used", http.StatusBadRequest)
}

// Predefined errors
var (
	ErrUnknownCode   = NewAppError(ErrCodePromoNotFound, "This code does not exist", http.StatusNotFound)
	ErrNotCombinable = NewAppError(ErrCodePromoNotCombinable, "This code cannot be combined with the discounts already applied", http.StatusBadRequest)
)
