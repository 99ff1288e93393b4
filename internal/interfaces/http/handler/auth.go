package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/magpieiq/backend/internal/infrastructure/auth"
	"github.com/magpieiq/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// CredentialVerifier checks a login attempt; *auth.CredentialChecker implements it
type CredentialVerifier interface {
	Check(email, password string) error
}

// TokenIssuer signs access tokens; *auth.JWTService implements it
type TokenIssuer interface {
	GenerateAccessToken(email string) (*auth.AccessToken, error)
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email"`
}

// MeResponse echoes the caller's claims
type MeResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	credentials CredentialVerifier
	tokens      TokenIssuer
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(credentials CredentialVerifier, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		tokens:      tokens,
		logger:      logger,
	}
}

// Login exchanges the configured credential for an access token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.credentials.Check(req.Email, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Warn("Login rejected", zap.String("client_ip", c.ClientIP()))
			h.HandleError(c, shared.ErrInvalidCredentials)
			return
		}
		h.HandleError(c, err)
		return
	}

	token, err := h.tokens.GenerateAccessToken(req.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		Email:       req.Email,
	})
}

// Me returns the authenticated caller.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	h.Success(c, MeResponse{Email: claims.Email, ExpiresAt: claims.GetExpiresAtTime()})
}
