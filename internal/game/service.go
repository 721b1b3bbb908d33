package game

import (
	"context"
	"fmt"
	"log/slog"

	"sudooom.memmatch/internal/game/session"
	apperrors "sudooom.memmatch/pkg/errors"
	"sudooom.memmatch/pkg/proto"
)

// Service player commands over the session registry, as used by the transport layer
type Service struct {
	manager *Manager
	logger  *slog.Logger
}

// NewService creates the service
func NewService(manager *Manager) *Service {
	return &Service{
		manager: manager,
		logger:  slog.Default().With("component", "GameService"),
	}
}

// Manager underlying registry
func (s *Service) Manager() *Manager {
	return s.manager
}

// CreateSession registers a session and, when start is set, deals the default board
func (s *Service) CreateSession(ctx context.Context, player string, start bool) (session.Snapshot, error) {
	sess, err := s.manager.Create(player)
	if err != nil {
		return session.Snapshot{}, err
	}

	if start {
		cfg := s.manager.GameConfig()
		if err := sess.StartNewGame(ctx, cfg.Rows, cfg.Cols); err != nil {
			s.manager.Remove(sess.ID())
			return session.Snapshot{}, err
		}
	}
	return sess.Snapshot(), nil
}

// NewGame starts a game; zero dimensions fall back to the configured board
func (s *Service) NewGame(ctx context.Context, id string, rows, cols int) (session.Snapshot, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}

	cfg := s.manager.GameConfig()
	if rows == 0 {
		rows = cfg.Rows
	}
	if cols == 0 {
		cols = cfg.Cols
	}

	if err := sess.StartNewGame(ctx, rows, cols); err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Restart starts a game with a random layout; a nil range uses the configured one
func (s *Service) Restart(ctx context.Context, id string, r *session.LayoutRange) (session.Snapshot, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}

	layout := s.manager.GameConfig().Random
	if r != nil {
		layout = *r
	}

	if err := sess.RestartWithRandomLayout(ctx, layout); err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Flip flips the tile at position and reports whether the input was accepted
func (s *Service) Flip(ctx context.Context, id string, position int) (bool, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return false, err
	}

	accepted, err := sess.Flip(position)
	if err != nil {
		return false, err
	}
	if !accepted {
		s.logger.Debug("Flip ignored", "sessionId", id, "position", position)
	}
	return accepted, nil
}

// Snapshot returns the player's view of a session
func (s *Service) Snapshot(id string) (session.Snapshot, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Session returns the live session
func (s *Service) Session(id string) (*session.Session, error) {
	return s.manager.Get(id)
}

// Delete closes a session
func (s *Service) Delete(id string) bool {
	return s.manager.Remove(id)
}

// Execute runs a transport command and packs the outcome into a reply
func (s *Service) Execute(ctx context.Context, cmd proto.Command) proto.Reply {
	reply := proto.Reply{ID: cmd.ID}

	var (
		data     any
		accepted bool
		err      error
	)
	switch cmd.Action {
	case proto.ActionFlip:
		accepted, err = s.Flip(ctx, cmd.SessionID, cmd.Position)
		data = proto.FlipResponse{Position: cmd.Position, Accepted: accepted}
	case proto.ActionNewGame:
		data, err = s.NewGame(ctx, cmd.SessionID, cmd.Rows, cmd.Cols)
		accepted = err == nil
	case proto.ActionRestart:
		data, err = s.Restart(ctx, cmd.SessionID, LayoutFromRequest(cmd.Range))
		accepted = err == nil
	case proto.ActionSnapshot:
		data, err = s.Snapshot(cmd.SessionID)
		accepted = err == nil
	default:
		err = apperrors.ErrInvalidParams.Wrap(fmt.Errorf("unknown action %q", cmd.Action))
	}

	if err != nil {
		s.logger.Debug("Command failed", "sessionId", cmd.SessionID, "action", cmd.Action, "error", err)
		reply.Code = apperrors.GetCode(err)
		reply.Message = apperrors.GetMessage(err)
		return reply
	}

	reply.Code = apperrors.CodeSuccess
	reply.Message = "success"
	reply.Accepted = accepted
	reply.Data = data
	return reply
}

// LayoutFromRequest converts restart bounds; nil means the configured range
func LayoutFromRequest(r *proto.RestartRequest) *session.LayoutRange {
	if r.IsZero() {
		return nil
	}
	return &session.LayoutRange{
		MinRows: r.MinRows,
		MaxRows: r.MaxRows,
		MinCols: r.MinCols,
		MaxCols: r.MaxCols,
	}
}
