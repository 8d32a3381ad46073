package service

import (
	"context"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shopcms-backend/internal/domains/auth/model"
	"shopcms-backend/internal/shared/middleware"
	"shopcms-backend/pkg/jwt"
)

func TestAuthService_AdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	manager := jwt.NewManager("secret", time.Hour)
	svc := NewAuthService("Admin@Shop.test", string(hash), manager)
	ctx := context.Background()

	t.Run("valid credentials issue an admin token", func(t *testing.T) {
		resp, err := svc.AdminLogin(ctx, &model.LoginRequest{Email: " admin@shop.test ", Password: "s3cret-pass"})
		require.NoError(t, err)

		claims, err := manager.ValidateAccessToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, middleware.RoleAdmin, claims.Role)
		assert.Equal(t, "admin@shop.test", claims.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.AdminLogin(ctx, &model.LoginRequest{Email: "admin@shop.test", Password: "nope"})
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.AdminLogin(ctx, &model.LoginRequest{Email: "someone@shop.test", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("malformed email", func(t *testing.T) {
		_, err := svc.AdminLogin(ctx, &model.LoginRequest{Email: "not-an-email", Password: "x"})
		var errs validation.Errors
		assert.ErrorAs(t, err, &errs)
	})

	t.Run("no hash configured", func(t *testing.T) {
		_, err := NewAuthService("admin@shop.test", "", manager).
			AdminLogin(ctx, &model.LoginRequest{Email: "admin@shop.test", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})
}
