package nats

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"sudooom.memmatch/internal/config"
)

// Client NATS connection wrapper
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewClient connects to cfg.URL
func NewClient(cfg config.NATSConfig) (*Client, error) {
	logger := slog.Default().With("component", "NATS")

	opts := []nats.Option{
		nats.Name("memmatch"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		conn:   conn,
		logger: logger,
	}, nil
}

// Conn underlying connection
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Close drains pending publishes and closes the connection
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed", "error", err)
		c.conn.Close()
	}
}

// IsConnected reports the connection state
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
