package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
	StatusRunning      = "running"
	StatusStopped      = "stopped"
)

// Status per-dependency state
type Status struct {
	Scheduler string `json:"scheduler"`
	NATS      string `json:"nats"`
	Redis     string `json:"redis"`
	Database  string `json:"database"`
	Sessions  int    `json:"sessions"`
}

// Healthy reports whether every configured dependency is up
func (s *Status) Healthy() bool {
	if s.Scheduler != StatusRunning {
		return false
	}
	for _, v := range []string{s.NATS, s.Redis, s.Database} {
		if v == StatusDisconnected {
			return false
		}
	}
	return true
}

// Scheduler running state of the timer driving sessions
type Scheduler interface {
	IsRunning() bool
}

// Checker health checks; nil dependencies are reported as disabled
type Checker struct {
	scheduler   Scheduler
	nc          *nats.Conn
	redisClient redis.UniversalClient
	db          *pgxpool.Pool
	sessions    func() int
}

// NewChecker creates the checker
func NewChecker(scheduler Scheduler, nc *nats.Conn, redisClient redis.UniversalClient, db *pgxpool.Pool, sessions func() int) *Checker {
	return &Checker{
		scheduler:   scheduler,
		nc:          nc,
		redisClient: redisClient,
		db:          db,
		sessions:    sessions,
	}
}

// Check runs every probe
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Scheduler: StatusStopped,
		NATS:      StatusDisabled,
		Redis:     StatusDisabled,
		Database:  StatusDisabled,
	}

	if h.scheduler != nil && h.scheduler.IsRunning() {
		status.Scheduler = StatusRunning
	}
	if h.sessions != nil {
		status.Sessions = h.sessions()
	}

	if h.nc != nil {
		status.NATS = connected(h.nc.IsConnected())
	}

	if h.redisClient != nil {
		redisCtx, redisCancel := context.WithTimeout(ctx, 2*time.Second)
		defer redisCancel()
		status.Redis = connected(h.redisClient.Ping(redisCtx).Err() == nil)
	}

	if h.db != nil {
		dbCtx, dbCancel := context.WithTimeout(ctx, 2*time.Second)
		defer dbCancel()
		status.Database = connected(h.db.Ping(dbCtx) == nil)
	}

	return status
}

func connected(ok bool) string {
	if ok {
		return StatusConnected
	}
	return StatusDisconnected
}

// IsHealthy runs Check and reports the verdict
func (h *Checker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Healthy()
}

// ServeHTTP /health endpoint
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// Ready /ready endpoint
func (h *Checker) Ready(w http.ResponseWriter, r *http.Request) {
	if h.IsHealthy(r.Context()) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Not Ready"))
	}
}
