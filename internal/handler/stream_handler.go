package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sudooom.memmatch/internal/game"
	"sudooom.memmatch/internal/game/event"
	apperrors "sudooom.memmatch/pkg/errors"
	"sudooom.memmatch/pkg/proto"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
)

// StreamHandler per-session WebSocket: pushes notifications, accepts commands
type StreamHandler struct {
	svc      *game.Service
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates the handler; checkOrigin nil accepts every origin
func NewStreamHandler(svc *game.Service, checkOrigin func(r *http.Request) bool) *StreamHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &StreamHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: slog.Default().With("component", "StreamHandler"),
	}
}

// Stream GET /api/sessions/:id/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	s, ok := lookupSession(c, h.svc, h.logger)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "sessionId", s.ID(), "error", err)
		return
	}

	client := &streamClient{
		conn:      conn,
		sessionID: s.ID(),
		svc:       h.svc,
		send:      make(chan proto.Frame, sendBuffer),
		done:      make(chan struct{}),
		logger:    h.logger.With("sessionId", s.ID(), "remote", conn.RemoteAddr().String()),
	}

	sub := s.Subscribe(func(e event.Event) {
		client.push(proto.Frame{Type: proto.FrameEvent, Event: e})
	})

	client.push(proto.Frame{Type: proto.FrameReply, Reply: &proto.Reply{
		Code:    apperrors.CodeSuccess,
		Message: "success",
		Data:    s.Snapshot(),
	}})

	client.logger.Info("Stream opened")
	go client.writeLoop()
	go func() {
		client.readLoop(context.Background())
		sub.Unsubscribe()
		client.logger.Info("Stream closed")
	}()
}

type streamClient struct {
	conn      *websocket.Conn
	sessionID string
	svc       *game.Service
	send      chan proto.Frame
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// push never blocks: notifications are published on game goroutines
func (c *streamClient) push(f proto.Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- f:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("Stream buffer full, dropping frame", "type", f.Type)
		return false
	}
}

func (c *streamClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *streamClient) readLoop(ctx context.Context) {
	defer func() {
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var cmd proto.Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Unexpected stream close", "error", err)
			}
			return
		}

		cmd.SessionID = c.sessionID
		reply := c.svc.Execute(ctx, cmd)
		c.push(proto.Frame{Type: proto.FrameReply, Reply: &reply})
	}
}

func (c *streamClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				c.logger.Warn("Stream write failed", "error", err)
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
