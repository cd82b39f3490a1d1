package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/backend/internal/core/services"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
	"github.com/agentdeck/backend/internal/transport/http/dto"
)

func newApprovalTestApp(t *testing.T, timeout time.Duration) (*fiber.App, *services.ApprovalService) {
	t.Helper()

	svc := services.NewApprovalService(timeout, logger.NewNop())
	handler := NewApprovalHandler(svc, logger.NewNop())

	app := fiber.New()
	approvals := app.Group("/api/v1/approvals")
	approvals.Get("/status", handler.GetStatus)
	approvals.Post("/", handler.SubmitApproval)
	approvals.Post("/:id/resolve", handler.ResolveApproval)

	return app, svc
}

func TestApprovalSubmitTimesOutFailClosed(t *testing.T) {
	app, _ := newApprovalTestApp(t, 30*time.Millisecond)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/approvals/", dto.SubmitApprovalRequest{
		ReqID:    "req-1",
		ToolName: "Bash",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decision dto.ApprovalDecisionResponse
	require.NoError(t, json.Unmarshal(body, &decision))
	assert.Equal(t, "deny", decision.Decision)
	assert.True(t, decision.TimedOut)
}

func TestApprovalSubmitAndResolve(t *testing.T) {
	app, svc := newApprovalTestApp(t, time.Minute)

	type submitResult struct {
		status   int
		decision dto.ApprovalDecisionResponse
	}
	done := make(chan submitResult, 1)
	go func() {
		resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/approvals/", dto.SubmitApprovalRequest{
			ReqID:     "req-1",
			ToolName:  "Write",
			ToolInput: `{"file_path":"main.go"}`,
		})
		var decision dto.ApprovalDecisionResponse
		_ = json.Unmarshal(body, &decision)
		done <- submitResult{status: resp.StatusCode, decision: decision}
	}()

	require.Eventually(t, func() bool {
		return svc.Outstanding() == 1
	}, time.Second, 5*time.Millisecond)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/approvals/req-1/resolve", dto.ResolveApprovalRequest{
		Allow:  true,
		Reason: "reviewed",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	select {
	case result := <-done:
		assert.Equal(t, fiber.StatusOK, result.status)
		assert.Equal(t, "allow", result.decision.Decision)
		assert.False(t, result.decision.TimedOut)
		assert.Equal(t, "reviewed", result.decision.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked submit never returned")
	}
}

func TestApprovalSubmitValidation(t *testing.T) {
	app, _ := newApprovalTestApp(t, time.Minute)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/approvals/", dto.SubmitApprovalRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Contains(t, errResp.Details, "req_id is required")
	assert.Contains(t, errResp.Details, "tool_name is required")
}

func TestApprovalDuplicateSubmitConflicts(t *testing.T) {
	app, svc := newApprovalTestApp(t, time.Minute)

	_, err := svc.Register("req-1", "Bash", "")
	require.NoError(t, err)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/approvals/", dto.SubmitApprovalRequest{
		ReqID:    "req-1",
		ToolName: "Bash",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestApprovalResolveUnknownNotFound(t *testing.T) {
	app, _ := newApprovalTestApp(t, time.Minute)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/approvals/ghost/resolve", dto.ResolveApprovalRequest{
		Allow: true,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestApprovalStatusEndpoint(t *testing.T) {
	app, svc := newApprovalTestApp(t, time.Minute)

	_, err := svc.Register("req-1", "Bash", "")
	require.NoError(t, err)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/approvals/status", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var status dto.ApprovalStatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, 1, status.Outstanding)
	assert.Equal(t, "1m0s", status.Timeout)
}
