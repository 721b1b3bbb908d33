package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.memmatch/internal/config"
	"sudooom.memmatch/internal/game"
	"sudooom.memmatch/internal/game/pool"
	"sudooom.memmatch/internal/game/session"
	"sudooom.memmatch/internal/game/tile"
	"sudooom.memmatch/internal/health"
	"sudooom.memmatch/internal/highscore"
	"sudooom.memmatch/internal/jwt"
	"sudooom.memmatch/internal/metrics"
	"sudooom.memmatch/internal/task"
	apperrors "sudooom.memmatch/pkg/errors"
)

type running struct{}

func (running) IsRunning() bool { return true }

func setup(t *testing.T, withAuth bool) *gin.Engine {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.App.Mode = gin.TestMode

	pools := pool.NewManager[*tile.Tile]()
	pools.Register(pool.Spec{Key: session.DefaultPoolKey, InitialSize: 8, Expandable: true}, tile.NewFactory())
	manager := game.NewManager(cfg.Sessions, cfg.Game, task.NewManualScheduler(), pools, highscore.NewMemoryStore())
	t.Cleanup(func() { manager.Shutdown(t.Context()) })

	rec := metrics.NewRecorder()
	rec.TrackSessions(manager.Count)
	manager.Observe(rec.Observe)

	deps := Deps{
		Service: game.NewService(manager),
		Health:  health.NewChecker(running{}, nil, nil, nil, manager.Count),
		Metrics: rec,
	}
	if withAuth {
		deps.JWT = jwt.NewService("secret", "memmatch", time.Hour, 24*time.Hour)
	}
	return SetupRouter(cfg, deps)
}

func serve(r *gin.Engine, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOperationalEndpoints(t *testing.T) {
	r := setup(t, false)

	w := serve(r, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = serve(r, http.MethodPost, "/api/sessions", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memmatch_sessions 1")
	assert.Contains(t, w.Body.String(), `memmatch_events_total{kind="hud_changed"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	r := setup(t, false)

	w := serve(r, http.MethodOptions, "/api/sessions", nil, map[string]string{"Origin": "http://game.local"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://game.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRoutesOnlyWithSecret(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"player": "alice"})

	w := serve(setup(t, false), http.MethodPost, "/api/auth/token", body, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	r := setup(t, true)
	w = serve(r, http.MethodPost, "/api/auth/token", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int           `json:"code"`
		Data jwt.TokenPair `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, apperrors.CodeSuccess, resp.Code)

	w = serve(r, http.MethodPost, "/api/sessions", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/sessions", nil, map[string]string{"Authorization": "Bearer " + resp.Data.AccessToken})
	assert.Equal(t, http.StatusOK, w.Code)
}
