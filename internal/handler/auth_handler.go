package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"sudooom.memmatch/internal/jwt"
	apperrors "sudooom.memmatch/pkg/errors"
	"sudooom.memmatch/pkg/proto"
	"sudooom.memmatch/pkg/response"
)

// AuthHandler issues player tokens
type AuthHandler struct {
	jwt    *jwt.Service
	logger *slog.Logger
}

// NewAuthHandler creates the handler
func NewAuthHandler(jwtService *jwt.Service) *AuthHandler {
	return &AuthHandler{
		jwt:    jwtService,
		logger: slog.Default().With("component", "AuthHandler"),
	}
}

// Token POST /api/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req proto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	pair, err := h.jwt.GenerateTokenPair(req.Player)
	if err != nil {
		if errors.Is(err, jwt.ErrEmptyPlayer) {
			response.Error(c, apperrors.ErrInvalidParams)
			return
		}
		h.logger.Error("Failed to issue token", "player", req.Player, "error", err)
		response.ErrorFromAppError(c, err)
		return
	}

	h.logger.Info("Token issued", "player", req.Player)
	response.Success(c, pair)
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req proto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			response.Unauthorized(c, apperrors.ErrTokenExpired)
		} else {
			response.Unauthorized(c, apperrors.ErrTokenInvalid)
		}
		return
	}

	pair, err := h.jwt.GenerateTokenPair(claims.Player)
	if err != nil {
		h.logger.Error("Failed to refresh token", "player", claims.Player, "error", err)
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, pair)
}
