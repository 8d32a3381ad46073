package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogModel "shopcms-backend/internal/domains/catalog/model"
	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/discount/repository"
	"shopcms-backend/internal/domains/discount/service"
	"shopcms-backend/internal/infrastructure/filestore"
	"shopcms-backend/internal/shared/middleware"
	"shopcms-backend/pkg/cache"
	"shopcms-backend/pkg/jwt"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func send(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

func newAdminRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	repo := repository.NewJSONRepository(store)
	h := NewAdminHandler(service.NewDiscountService(repo, repo, cache.NewMemoryCache(), time.Minute))

	r := gin.New()
	g := r.Group("/admin/discounts")
	g.POST("", h.CreateDiscount)
	g.GET("", h.ListDiscounts)
	g.GET("/:id", h.GetDiscount)
	g.PUT("/:id", h.UpdateDiscount)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.DeleteDiscount)
	g.GET("/:id/usage", h.GetUsageHistory)
	g.GET("/:id/usage/export", h.ExportUsage)
	return r
}

func createSummer(t *testing.T, r http.Handler) model.DiscountRecord {
	t.Helper()
	w := send(r, http.MethodPost, "/admin/discounts", gin.H{
		"code":  "summer10",
		"name":  "Summer sale",
		"type":  "percentage",
		"value": "10",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec model.DiscountRecord
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rec))
	return rec
}

func TestAdminHandler_CreateAndDuplicate(t *testing.T) {
	r := newAdminRouter(t)

	rec := createSummer(t, r)
	assert.Equal(t, "SUMMER10", rec.Code)

	w := send(r, http.MethodPost, "/admin/discounts", gin.H{
		"code": "SUMMER10", "name": "Again", "type": "percentage", "value": "5",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(model.ErrCodePromoDuplicateCode), decode(t, w).Error.Code)
}

func TestAdminHandler_InvalidRuleReturnsFieldDetails(t *testing.T) {
	r := newAdminRouter(t)

	w := send(r, http.MethodPost, "/admin/discounts", gin.H{
		"code": "BAD", "name": "Too generous", "type": "percentage", "value": "150",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.Equal(t, string(model.ErrCodeValidationFailed), env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "value")
}

func TestAdminHandler_GetListAndNotFound(t *testing.T) {
	r := newAdminRouter(t)
	rec := createSummer(t, r)

	w := send(r, http.MethodGet, "/admin/discounts/"+rec.ID.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, "/admin/discounts/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodGet, "/admin/discounts/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, "/admin/discounts?status=active&limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Total)
	assert.Equal(t, 5, env.Meta.Limit)
}

func TestAdminHandler_UpdateStatusAndDelete(t *testing.T) {
	r := newAdminRouter(t)
	rec := createSummer(t, r)
	path := "/admin/discounts/" + rec.ID.String()

	w := send(r, http.MethodPut, path, gin.H{"name": "Renamed", "version": rec.Version + 1}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = send(r, http.MethodPut, path, gin.H{"name": "Renamed", "version": rec.Version}, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = send(r, http.MethodPatch, path+"/status", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPatch, path+"/status", gin.H{"is_active": false}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = send(r, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandler_UsageAndExport(t *testing.T) {
	r := newAdminRouter(t)
	rec := createSummer(t, r)
	path := "/admin/discounts/" + rec.ID.String()

	w := send(r, http.MethodGet, path+"/usage", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode(t, w).Meta.Total)

	w = send(r, http.MethodGet, path+"/usage/export", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "discount_usage_SUMMER10_")
	assert.NotEmpty(t, w.Body.Bytes())
}

// -------------------------------------------------------------------
// STOREFRONT
// -------------------------------------------------------------------

type stubCheckout struct {
	err          error
	lastCustomer *uuid.UUID
}

func (s *stubCheckout) PreviewCart(ctx context.Context, req *model.PriceCartRequest) (*model.PricingResult, error) {
	s.lastCustomer = req.CustomerID
	if s.err != nil {
		return nil, s.err
	}
	return &model.PricingResult{Currency: "EUR", Total: decimal.RequireFromString("49.90")}, nil
}

func (s *stubCheckout) FinalizeOrder(ctx context.Context, req *model.FinalizeOrderRequest) (*model.PricingResult, error) {
	s.lastCustomer = req.CustomerID
	if s.err != nil {
		return nil, s.err
	}
	orderID := req.OrderID
	return &model.PricingResult{OrderID: &orderID, Currency: "EUR"}, nil
}

func newPublicRouter(checkout service.CheckoutServiceInterface, manager *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPublicHandler(checkout)

	r := gin.New()
	r.POST("/cart/preview", middleware.OptionalAuthMiddleware(manager), h.PreviewCart)
	r.POST("/checkout/finalize", middleware.AuthMiddleware(manager), h.FinalizeOrder)
	return r
}

func TestPublicHandler_Preview(t *testing.T) {
	manager := jwt.NewManager("secret", time.Hour)
	stub := &stubCheckout{}
	r := newPublicRouter(stub, manager)
	body := gin.H{"items": []gin.H{{"product_id": uuid.NewString(), "quantity": 1}}, "codes": []string{"SUMMER10"}}

	w := send(r, http.MethodPost, "/cart/preview", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, stub.lastCustomer)
	assert.Contains(t, string(decode(t, w).Data), `"total":"49.9"`)

	customerID := uuid.New()
	token, _, err := manager.GenerateAccessToken(customerID.String(), "c@shop.test", middleware.RoleCustomer)
	require.NoError(t, err)

	w = send(r, http.MethodPost, "/cart/preview", body, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, stub.lastCustomer)
	assert.Equal(t, customerID, *stub.lastCustomer)
}

func TestPublicHandler_ErrorMapping(t *testing.T) {
	manager := jwt.NewManager("secret", time.Hour)
	body := gin.H{"items": []gin.H{{"product_id": uuid.NewString(), "quantity": 1}}}

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: x", catalogModel.ErrProductNotFound), http.StatusBadRequest, "RES_PRODUCT_NOT_FOUND"},
		{fmt.Errorf("%w: x", catalogModel.ErrProductUnavailable), http.StatusBadRequest, "BIZ_PRODUCT_UNAVAILABLE"},
		{model.ErrFinalizeRetriesExhausted, http.StatusConflict, string(model.ErrCodeFinalizeFailed)},
		{(&model.PriceCartRequest{}).Validate(), http.StatusBadRequest, string(model.ErrCodeValidationFailed)},
		{fmt.Errorf("db down"), http.StatusInternalServerError, string(model.ErrCodeInternalError)},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			r := newPublicRouter(&stubCheckout{err: tt.err}, manager)
			w := send(r, http.MethodPost, "/cart/preview", body, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func TestPublicHandler_FinalizeRequiresAuth(t *testing.T) {
	manager := jwt.NewManager("secret", time.Hour)
	stub := &stubCheckout{}
	r := newPublicRouter(stub, manager)
	body := gin.H{
		"items":    []gin.H{{"product_id": uuid.NewString(), "quantity": 1}},
		"order_id": uuid.NewString(),
	}

	w := send(r, http.MethodPost, "/checkout/finalize", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	customerID := uuid.New()
	token, _, err := manager.GenerateAccessToken(customerID.String(), "c@shop.test", middleware.RoleCustomer)
	require.NoError(t, err)

	w = send(r, http.MethodPost, "/checkout/finalize", body, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, customerID, *stub.lastCustomer)
}
