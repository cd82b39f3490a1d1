package services

import (
	"context"
	"errors"
	"strings"

	"github.com/agentdeck/backend/internal/core/ports"
	"github.com/agentdeck/backend/internal/domain"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

const maxListLimit = 100

// QueueService is the admission surface over the durable task store. Enqueue
// never blocks; execution happens later on the dispatcher's single worker.
type QueueService struct {
	repo ports.TaskRepository
	log  *logger.Logger
	wake chan struct{}
}

func NewQueueService(repo ports.TaskRepository, log *logger.Logger) *QueueService {
	return &QueueService{
		repo: repo,
		log:  log,
		wake: make(chan struct{}, 1),
	}
}

// Wake is the dispatcher's idle-wait signal. A send is attempted on every
// enqueue; capacity one means a pending wake-up is never duplicated.
func (s *QueueService) Wake() <-chan struct{} {
	return s.wake
}

func (s *QueueService) Enqueue(ctx context.Context, prompt, chatID, platform, provider, workDir string) (*domain.Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	task := &domain.Task{
		Prompt:   prompt,
		ChatID:   chatID,
		Platform: platform,
		Provider: provider,
		WorkDir:  workDir,
		Status:   domain.TaskStatusPending,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Infow("task_enqueued", "id", task.ID, "platform", platform, "chat_id", chatID)

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return task, nil
}

func (s *QueueService) Get(ctx context.Context, id uint64) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *QueueService) List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.repo.List(ctx, filter)
}

// Cancel transitions a task to cancelled only while it is still pending.
// Losing the race against the dispatcher's claim is a normal outcome and is
// reported as ErrAlreadyStarted, distinguishable from ErrTaskNotFound.
func (s *QueueService) Cancel(ctx context.Context, id uint64) error {
	ok, err := s.repo.TransitionToCancelled(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		s.log.Infow("task_cancelled", "id", id)
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyStarted
}

func (s *QueueService) Stats(ctx context.Context) (*domain.TaskStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.TaskStats{
		Pending:   counts[domain.TaskStatusPending],
		Running:   counts[domain.TaskStatusRunning],
		Completed: counts[domain.TaskStatusCompleted],
		Failed:    counts[domain.TaskStatusFailed],
		Cancelled: counts[domain.TaskStatusCancelled],
	}
	stats.QueueDepth = stats.Pending + stats.Running
	return stats, nil
}

// Claim hands the oldest pending task to the dispatcher. Only the dispatcher
// calls this.
func (s *QueueService) Claim(ctx context.Context) (*domain.Task, error) {
	return s.repo.ClaimOldestPending(ctx)
}

// Complete records a successful run.
func (s *QueueService) Complete(ctx context.Context, id uint64, result *domain.TaskResult) error {
	if err := s.repo.MarkCompleted(ctx, id, result); err != nil {
		return err
	}
	s.log.Infow("task_completed", "id", id, "model", result.Model, "cost_usd", result.CostUSD)
	return nil
}

// Fail records a failed run.
func (s *QueueService) Fail(ctx context.Context, id uint64, errMsg string) error {
	if err := s.repo.MarkFailed(ctx, id, errMsg); err != nil {
		return err
	}
	s.log.Warnw("task_failed", "id", id, "error", errMsg)
	return nil
}

// RecoverOrphans fails tasks left running by a prior process lifetime. Runs
// once at startup, before the dispatcher's first claim.
func (s *QueueService) RecoverOrphans(ctx context.Context) (int64, error) {
	n, err := s.repo.FailAllRunning(ctx, "worker restarted while task was running")
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Warnw("orphaned_tasks_recovered", "count", n)
	}
	return n, nil
}
