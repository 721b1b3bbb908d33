package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.memmatch/internal/game"
	"sudooom.memmatch/internal/game/session"
	"sudooom.memmatch/internal/middleware"
	apperrors "sudooom.memmatch/pkg/errors"
	"sudooom.memmatch/pkg/proto"
	"sudooom.memmatch/pkg/response"
)

// SessionHandler REST commands for game sessions
type SessionHandler struct {
	svc    *game.Service
	logger *slog.Logger
}

// NewSessionHandler creates the handler
func NewSessionHandler(svc *game.Service) *SessionHandler {
	return &SessionHandler{
		svc:    svc,
		logger: slog.Default().With("component", "SessionHandler"),
	}
}

// Create POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req proto.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.InvalidParams(c, err)
			return
		}
	}

	player := middleware.GetPlayer(c)
	if player == "" {
		player = strings.TrimSpace(req.Player)
	}

	snap, err := h.svc.CreateSession(c.Request.Context(), player, req.ShouldStart())
	if err != nil {
		h.logger.Warn("Create session failed", "player", player, "error", err)
		response.ErrorFromAppError(c, err)
		return
	}

	response.Success(c, snap)
}

// Get GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.owned(c)
	if !ok {
		return
	}
	response.Success(c, s.Snapshot())
}

// Delete DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	s, ok := h.owned(c)
	if !ok {
		return
	}
	h.svc.Delete(s.ID())
	response.Success(c, nil)
}

// NewGame POST /api/sessions/:id/games
func (h *SessionHandler) NewGame(c *gin.Context) {
	var req proto.NewGameRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.InvalidParams(c, err)
			return
		}
	}

	s, ok := h.owned(c)
	if !ok {
		return
	}

	snap, err := h.svc.NewGame(c.Request.Context(), s.ID(), req.Rows, req.Cols)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, snap)
}

// Restart POST /api/sessions/:id/restart
func (h *SessionHandler) Restart(c *gin.Context) {
	var req proto.RestartRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.InvalidParams(c, err)
			return
		}
	}

	s, ok := h.owned(c)
	if !ok {
		return
	}

	snap, err := h.svc.Restart(c.Request.Context(), s.ID(), game.LayoutFromRequest(&req))
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, snap)
}

// Flip POST /api/sessions/:id/flip
func (h *SessionHandler) Flip(c *gin.Context) {
	var req proto.FlipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	s, ok := h.owned(c)
	if !ok {
		return
	}

	accepted, err := h.svc.Flip(c.Request.Context(), s.ID(), *req.Position)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}
	response.Success(c, proto.FlipResponse{Position: *req.Position, Accepted: accepted})
}

func (h *SessionHandler) owned(c *gin.Context) (*session.Session, bool) {
	return lookupSession(c, h.svc, h.logger)
}

// lookupSession resolves :id; with authentication on, sessions of other players are reported as not found
func lookupSession(c *gin.Context, svc *game.Service, logger *slog.Logger) (*session.Session, bool) {
	s, err := svc.Session(c.Param("id"))
	if err != nil {
		response.ErrorFromAppError(c, err)
		return nil, false
	}

	if player := middleware.GetPlayer(c); player != "" && player != s.Player() {
		logger.Warn("Session owned by another player", "sessionId", s.ID(), "player", player)
		response.Error(c, apperrors.ErrSessionNotFound)
		return nil, false
	}
	return s, true
}
