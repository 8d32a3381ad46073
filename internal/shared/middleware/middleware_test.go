package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcms-backend/pkg/jwt"
)

func newTestRouter(jwtManager *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())

	whoami := func(c *gin.Context) {
		if actor := CurrentActor(c); actor != nil {
			c.String(http.StatusOK, actor.ID.String())
			return
		}
		c.String(http.StatusOK, "anonymous")
	}

	r.GET("/optional", OptionalAuthMiddleware(jwtManager), whoami)
	r.GET("/required", AuthMiddleware(jwtManager), whoami)
	r.GET("/admin", AuthMiddleware(jwtManager), AdminMiddleware(), whoami)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewares(t *testing.T) {
	manager := jwt.NewManager("secret", time.Hour)
	r := newTestRouter(manager)

	customerID := uuid.New()
	customerToken, _, err := manager.GenerateAccessToken(customerID.String(), "c@shop.test", RoleCustomer)
	require.NoError(t, err)
	adminToken, _, err := manager.GenerateAccessToken(uuid.NewString(), "a@shop.test", RoleAdmin)
	require.NoError(t, err)

	t.Run("optional without token is anonymous", func(t *testing.T) {
		w := doGet(r, "/optional", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("optional with token sets actor", func(t *testing.T) {
		w := doGet(r, "/optional", customerToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, customerID.String(), w.Body.String())
	})

	t.Run("optional with bad token is rejected", func(t *testing.T) {
		w := doGet(r, "/optional", "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("required without token", func(t *testing.T) {
		w := doGet(r, "/required", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("admin route refuses customers", func(t *testing.T) {
		w := doGet(r, "/admin", customerToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin route accepts admins", func(t *testing.T) {
		w := doGet(r, "/admin", adminToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRecovery(t *testing.T) {
	r := newTestRouter(jwt.NewManager("secret", time.Hour))

	w := doGet(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_INTERNAL_ERROR")
}
