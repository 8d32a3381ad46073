package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcms-backend/internal/domains/promotion/model"
	"shopcms-backend/internal/domains/promotion/repository"
	"shopcms-backend/internal/domains/promotion/service"
	"shopcms-backend/internal/infrastructure/filestore"
	"shopcms-backend/pkg/cache"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	svc := service.NewPromotionService(repository.NewJSONRepository(store), cache.NewMemoryCache(), time.Minute)
	admin := NewAdminHandler(svc)
	public := NewPublicHandler(svc)

	r := gin.New()
	r.GET("/promotions/active", public.ListActivePromotions)
	g := r.Group("/admin/promotions")
	g.POST("", admin.CreatePromotion)
	g.GET("", admin.ListPromotions)
	g.GET("/:id", admin.GetPromotion)
	g.PUT("/:id", admin.UpdatePromotion)
	g.DELETE("/:id", admin.DeletePromotion)
	return r
}

func send(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPromotionHandlers(t *testing.T) {
	r := newRouter(t)

	w := send(r, http.MethodPost, "/admin/promotions", gin.H{
		"title": "Summer banner", "type": "banner", "image_url": "https://cdn.shop.test/summer.png",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data model.Promotion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = send(r, http.MethodPost, "/admin/promotions", gin.H{
		"title": "Cart", "type": "cart_discount", "discount_type": "percentage", "discount_value": "10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(r, http.MethodPost, "/admin/promotions", gin.H{"title": "Broken", "type": "banner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "image_url")

	w = send(r, http.MethodGet, "/promotions/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active struct {
		Data model.ActivePromotionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	assert.Len(t, active.Data.Visual, 1)
	assert.Len(t, active.Data.Sales, 1)

	path := "/admin/promotions/" + created.Data.ID.String()
	w = send(r, http.MethodPut, path, gin.H{
		"title": "Renamed", "type": "banner", "image_url": "https://cdn.shop.test/summer.png", "version": created.Data.Version + 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = send(r, http.MethodGet, "/admin/promotions?type=banner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = send(r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = send(r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodGet, "/admin/promotions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
