package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.memmatch/internal/jwt"
	apperrors "sudooom.memmatch/pkg/errors"
	"sudooom.memmatch/pkg/response"
)

const playerKey = "player"

// JWTAuth requires a bearer access token and stores its player on the context
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			response.Unauthorized(c, apperrors.ErrTokenInvalid)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, apperrors.ErrTokenExpired)
			} else {
				response.Unauthorized(c, apperrors.ErrTokenInvalid)
			}
			c.Abort()
			return
		}

		c.Set(playerKey, claims.Player)
		c.Next()
	}
}

// extractToken reads "Bearer <token>"
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// GetPlayer authenticated player, empty when auth is disabled
func GetPlayer(c *gin.Context) string {
	return c.GetString(playerKey)
}
