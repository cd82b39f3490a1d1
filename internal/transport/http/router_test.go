package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/backend/internal/config"
	"github.com/agentdeck/backend/internal/infrastructure/db"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

func newTestRouter(t *testing.T) (*fiber.App, *Services) {
	t.Helper()

	database, err := db.NewSQLiteConnection(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })
	require.NoError(t, db.RunMigrations(database))

	cfg := &config.Config{
		Approval: config.ApprovalConfig{Timeout: time.Minute},
		Worker:   config.WorkerConfig{Concurrency: 1, IdlePoll: time.Second},
		Poller:   config.PollerConfig{Interval: time.Second, RequestTimeout: time.Second},
	}

	app := fiber.New()
	svc := SetupRoutes(app, RouterConfig{
		DB:     database,
		Logger: logger.NewNop(),
		Config: cfg,
	})
	return app, svc
}

func TestHealthRoute(t *testing.T) {
	app, _ := newTestRouter(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPollerRoutesWithoutGateway(t *testing.T) {
	app, svc := newTestRouter(t)

	// No gateway configured: status reports inactive, start conflicts.
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/poller/status", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, false, status["active"])

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/poller/start", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	assert.NotNil(t, svc.Dispatcher)
	assert.NotNil(t, svc.Poller)
}

func TestWebsocketRouteRequiresUpgrade(t *testing.T) {
	app, _ := newTestRouter(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ws/tasks/1/events", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
