package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	apperrors "sudooom.memmatch/pkg/errors"
	"sudooom.memmatch/pkg/proto"
)

// Executor runs player commands
type Executor interface {
	Execute(ctx context.Context, cmd proto.Command) proto.Reply
}

// SubscriberConfig worker pool settings
type SubscriberConfig struct {
	Prefix      string
	Queue       string
	WorkerCount int
	BufferSize  int
}

// CommandSubscriber consumes player commands from the command subject and answers request/reply callers
type CommandSubscriber struct {
	nc           *nats.Conn
	executor     Executor
	logger       *slog.Logger
	subscription *nats.Subscription
	config       SubscriberConfig
	msgChan      chan *nats.Msg
	wg           sync.WaitGroup
	cancelFunc   context.CancelFunc
}

// NewCommandSubscriber creates the subscriber
func NewCommandSubscriber(nc *nats.Conn, executor Executor, config SubscriberConfig) *CommandSubscriber {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 8
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1024
	}

	return &CommandSubscriber{
		nc:       nc,
		executor: executor,
		logger:   slog.Default().With("component", "CommandSubscriber"),
		config:   config,
	}
}

// Start subscribes and launches the workers
func (s *CommandSubscriber) Start(ctx context.Context) error {
	s.msgChan = make(chan *nats.Msg, s.config.BufferSize)

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(workerCtx)
	}

	subject := CommandSubject(s.config.Prefix)
	sub, err := s.nc.QueueSubscribe(subject, s.config.Queue, func(msg *nats.Msg) {
		select {
		case s.msgChan <- msg:
		default:
			s.logger.Warn("Command buffer full, dropping command", "bufferSize", s.config.BufferSize)
		}
	})
	if err != nil {
		cancel()
		s.wg.Wait()
		return err
	}

	s.subscription = sub
	s.logger.Info("NATS command subscriber started",
		"subject", subject,
		"queue", s.config.Queue,
		"workerCount", s.config.WorkerCount,
		"bufferSize", s.config.BufferSize,
	)
	return nil
}

func (s *CommandSubscriber) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.msgChan:
			if !ok {
				return
			}
			reply := s.handle(ctx, msg.Data)
			if msg.Reply == "" {
				continue
			}
			if err := s.respond(msg, reply); err != nil {
				s.logger.Error("Failed to answer command", "reply", msg.Reply, "error", err)
			}
		}
	}
}

// handle decodes and executes one command
func (s *CommandSubscriber) handle(ctx context.Context, data []byte) proto.Reply {
	var cmd proto.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.logger.Warn("Failed to unmarshal command", "error", err)
		return proto.Reply{
			Code:    apperrors.CodeInvalidParams,
			Message: apperrors.ErrInvalidParams.Message,
		}
	}
	if cmd.SessionID == "" {
		return proto.Reply{
			ID:      cmd.ID,
			Code:    apperrors.CodeInvalidParams,
			Message: apperrors.ErrInvalidParams.Message,
		}
	}

	s.logger.Debug("Received command", "sessionId", cmd.SessionID, "action", cmd.Action)
	return s.executor.Execute(ctx, cmd)
}

func (s *CommandSubscriber) respond(msg *nats.Msg, reply proto.Reply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return msg.Respond(data)
}

// Stop unsubscribes and waits for the workers
func (s *CommandSubscriber) Stop() error {
	if s.subscription != nil {
		if err := s.subscription.Unsubscribe(); err != nil {
			s.logger.Error("Failed to unsubscribe", "error", err)
		}
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()

	s.logger.Info("NATS command subscriber stopped")
	return nil
}

// GetBufferUsage queued commands and buffer capacity
func (s *CommandSubscriber) GetBufferUsage() (current int, capacity int) {
	if s.msgChan == nil {
		return 0, 0
	}
	return len(s.msgChan), cap(s.msgChan)
}
