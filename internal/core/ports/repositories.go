package ports

import (
	"context"

	"github.com/agentdeck/backend/internal/domain"
)

// TaskRepository is the durable, append-only task store. Status transitions
// are compare-and-transition: they apply only when the current status matches
// the expected one and report whether they won, so the cancel-vs-claim race
// resolves in the store rather than in callers.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id uint64) (*domain.Task, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)

	// ClaimOldestPending transitions the lowest-id pending task to running
	// and returns it. Returns nil when no pending task exists.
	ClaimOldestPending(ctx context.Context) (*domain.Task, error)

	// TransitionToCancelled cancels the task only while it is still pending.
	// Returns false if the task was already claimed or is terminal.
	TransitionToCancelled(ctx context.Context, id uint64) (bool, error)

	// MarkCompleted records the result for a running task.
	MarkCompleted(ctx context.Context, id uint64, result *domain.TaskResult) error

	// MarkFailed records the failure for a running task.
	MarkFailed(ctx context.Context, id uint64, errMsg string) error

	// FailAllRunning transitions every running task to failed. Used by
	// startup recovery: a live process cannot exist for rows left running
	// by a prior process lifetime.
	FailAllRunning(ctx context.Context, reason string) (int64, error)
}
