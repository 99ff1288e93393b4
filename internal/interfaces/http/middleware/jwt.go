package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/infrastructure/auth"
	"github.com/magpieiq/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTEmailKey   = "jwt_email"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates bearer tokens; *auth.JWTService implements it
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer token with 401
// ERR_UNAUTHORIZED and stores the claims for downstream handlers.
func JWTAuth(validator TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			unauthorized(c, logger, auth.ErrInvalidToken, "missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			unauthorized(c, logger, auth.ErrInvalidToken, "invalid authorization header format")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			unauthorized(c, logger, auth.ErrInvalidToken, "missing token")
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			unauthorized(c, logger, err, "token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTEmailKey, claims.Email)
		c.Next()
	}
}

func unauthorized(c *gin.Context, logger *zap.Logger, err error, reason string) {
	if logger != nil {
		logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("reason", reason),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c)),
		)
	}

	message := "Authentication required"
	if errors.Is(err, auth.ErrExpiredToken) {
		message = "Token has expired"
	}
	abortWithError(c, dto.ErrCodeUnauthorized, message)
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}
