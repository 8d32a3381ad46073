package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shopcms-backend/internal/domains/auth/model"
	"shopcms-backend/internal/shared/middleware"
	"shopcms-backend/pkg/jwt"
	"shopcms-backend/pkg/logger"
)

type ServiceInterface interface {
	AdminLogin(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
}

// authService authenticates the single configured back-office account
type authService struct {
	adminEmail   string
	passwordHash []byte
	adminID      uuid.UUID
	jwt          *jwt.Manager
}

func NewAuthService(adminEmail, passwordHash string, jwtManager *jwt.Manager) ServiceInterface {
	email := strings.ToLower(strings.TrimSpace(adminEmail))
	return &authService{
		adminEmail:   email,
		passwordHash: []byte(passwordHash),
		// stable id so audit logs of one admin line up across restarts
		adminID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("shopcms:admin:"+email)),
		jwt:     jwtManager,
	}
}

// AdminLogin
//
// Business Logic:
// 1. Validate input
// 2. Email must match the configured admin
// 3. bcrypt compare (constant time)
// 4. Issue access token with the admin role
func (s *authService) AdminLogin(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if len(s.passwordHash) == 0 || req.Email != s.adminEmail {
		// same bcrypt work as a real check
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		logger.Warn("Admin login rejected", map[string]interface{}{"email": req.Email})
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		logger.Warn("Admin login rejected", map[string]interface{}{"email": req.Email})
		return nil, model.ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(s.adminID.String(), s.adminEmail, middleware.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	logger.Info("Admin logged in", map[string]interface{}{"admin_id": s.adminID.String()})
	return &model.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Email:       s.adminEmail,
		Role:        middleware.RoleAdmin,
	}, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("shopcms-unknown-admin"), bcrypt.DefaultCost)
