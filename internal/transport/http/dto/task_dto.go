package dto

import (
	"strings"
	"time"

	"github.com/agentdeck/backend/internal/domain"
)

type CreateTaskRequest struct {
	Prompt   string `json:"prompt" validate:"required"`
	ChatID   string `json:"chat_id,omitempty"`
	Platform string `json:"platform,omitempty"`
	Provider string `json:"provider,omitempty"`
	WorkDir  string `json:"work_dir,omitempty"`
}

func (r *CreateTaskRequest) Validate() []string {
	var errors []string

	if strings.TrimSpace(r.Prompt) == "" {
		errors = append(errors, "prompt is required")
	}

	return errors
}

type TaskResponse struct {
	ID          uint64             `json:"id"`
	Prompt      string             `json:"prompt"`
	ChatID      string             `json:"chat_id,omitempty"`
	Platform    string             `json:"platform,omitempty"`
	Provider    string             `json:"provider,omitempty"`
	Status      domain.TaskStatus  `json:"status"`
	Error       string             `json:"error,omitempty"`
	Result      *domain.TaskResult `json:"result,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

func TaskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Prompt:      task.Prompt,
		ChatID:      task.ChatID,
		Platform:    task.Platform,
		Provider:    task.Provider,
		Status:      task.Status,
		Error:       task.Error,
		Result:      task.Result(),
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}
}

func TasksToResponse(tasks []domain.Task) []TaskResponse {
	responses := make([]TaskResponse, len(tasks))
	for i := range tasks {
		responses[i] = TaskToResponse(&tasks[i])
	}
	return responses
}

type ListTasksResponse struct {
	Tasks []TaskResponse    `json:"tasks"`
	Stats *domain.TaskStats `json:"stats,omitempty"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
