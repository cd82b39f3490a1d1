package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/backend/internal/config"
	"github.com/agentdeck/backend/internal/core/services"
	"github.com/agentdeck/backend/internal/domain"
	"github.com/agentdeck/backend/internal/infrastructure/db"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
	"github.com/agentdeck/backend/internal/transport/http/dto"
)

func newTaskTestApp(t *testing.T) (*fiber.App, *services.QueueService) {
	t.Helper()

	database, err := db.NewSQLiteConnection(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })
	require.NoError(t, db.RunMigrations(database))

	queue := services.NewQueueService(db.NewTaskRepository(database, logger.NewNop()), logger.NewNop())
	handler := NewTaskHandler(queue, logger.NewNop())

	app := fiber.New()
	tasks := app.Group("/api/v1/tasks")
	tasks.Post("/", handler.CreateTask)
	tasks.Get("/", handler.GetTasks)
	tasks.Get("/:id", handler.GetTask)
	tasks.Post("/:id/cancel", handler.CancelTask)

	return app, queue
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, payload
}

func TestCreateTaskEndpoint(t *testing.T) {
	app, _ := newTaskTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/tasks/", dto.CreateTaskRequest{
		Prompt: "summarize the repo",
		ChatID: "c1",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var task dto.TaskResponse
	require.NoError(t, json.Unmarshal(body, &task))
	assert.NotZero(t, task.ID)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, "c1", task.ChatID)
}

func TestCreateTaskValidation(t *testing.T) {
	app, _ := newTaskTestApp(t)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/tasks/", dto.CreateTaskRequest{
		Prompt: "   ",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "validation failed", errResp.Error)
	assert.Contains(t, errResp.Details, "prompt is required")
}

func TestListTasksIncludesStats(t *testing.T) {
	app, _ := newTaskTestApp(t)

	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/tasks/", dto.CreateTaskRequest{Prompt: "job"})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/tasks/", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list dto.ListTasksResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Tasks, 3)
	require.NotNil(t, list.Stats)
	assert.Equal(t, int64(3), list.Stats.Pending)
	assert.Equal(t, int64(3), list.Stats.QueueDepth)
}

func TestListTasksInvalidStatus(t *testing.T) {
	app, _ := newTaskTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/tasks/?status=bogus", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetTaskNotFound(t *testing.T) {
	app, _ := newTaskTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/tasks/999", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/tasks/not-a-number", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCancelTaskStatusMapping(t *testing.T) {
	app, queue := newTaskTestApp(t)
	ctx := context.Background()

	pending, err := queue.Enqueue(ctx, "cancel me", "", "", "", "")
	require.NoError(t, err)
	running, err := queue.Enqueue(ctx, "already going", "", "", "", "")
	require.NoError(t, err)

	// Pending cancels cleanly.
	resp, _ := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/cancel", pending.ID), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Claim the second task so it is no longer cancellable.
	claimed, err := queue.Claim(ctx)
	require.NoError(t, err)
	require.Equal(t, running.ID, claimed.ID)

	resp, _ = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/cancel", running.ID), nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/tasks/999/cancel", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
