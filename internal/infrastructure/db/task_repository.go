package db

import (
	"context"
	"errors"
	"time"

	"github.com/agentdeck/backend/internal/core/ports"
	"github.com/agentdeck/backend/internal/domain"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("task_repo_create_failed", "error", err)
		return err
	}
	r.log.Infow("task_repo_create_ok", "id", task.ID)
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uint64) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("task_repo_get_failed", "id", id, "error", err)
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	q := r.db.WithContext(ctx).Model(&domain.Task{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ChatID != "" {
		q = q.Where("chat_id = ?", filter.ChatID)
	}

	var tasks []domain.Task
	err := q.
		Order("COALESCE(completed_at, started_at, created_at) DESC, id DESC").
		Limit(filter.Limit).
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_list_failed", "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	type row struct {
		Status domain.TaskStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		r.log.Errorw("task_repo_count_failed", "error", err)
		return nil, err
	}

	counts := make(map[domain.TaskStatus]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.N
	}
	return counts, nil
}

// ClaimOldestPending selects the lowest-id pending task and transitions it to
// running inside one transaction. The conditional UPDATE is the atomic
// compare-and-transition: if a concurrent cancel got there first, zero rows
// are affected and the claim reports no task this round.
func (r *taskRepository) ClaimOldestPending(ctx context.Context) (*domain.Task, error) {
	var claimed *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task domain.Task
		err := tx.
			Where("status = ?", domain.TaskStatusPending).
			Order("id ASC").
			First(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&domain.Task{}).
			Where("id = ? AND status = ?", task.ID, domain.TaskStatusPending).
			Updates(map[string]any{
				"status":     domain.TaskStatusRunning,
				"started_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to a cancel. Not an error.
			return nil
		}

		task.Status = domain.TaskStatusRunning
		task.StartedAt = &now
		claimed = &task
		return nil
	})
	if err != nil {
		r.log.Errorw("task_repo_claim_failed", "error", err)
		return nil, err
	}
	if claimed != nil {
		r.log.Infow("task_repo_claim_ok", "id", claimed.ID)
	}
	return claimed, nil
}

func (r *taskRepository) TransitionToCancelled(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND status = ?", id, domain.TaskStatusPending).
		Updates(map[string]any{
			"status":       domain.TaskStatusCancelled,
			"completed_at": time.Now(),
		})
	if res.Error != nil {
		r.log.Errorw("task_repo_cancel_failed", "id", id, "error", res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *taskRepository) MarkCompleted(ctx context.Context, id uint64, result *domain.TaskResult) error {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND status = ?", id, domain.TaskStatusRunning).
		Updates(map[string]any{
			"status":             domain.TaskStatusCompleted,
			"completed_at":       time.Now(),
			"result_text":        result.Text,
			"result_model":       result.Model,
			"result_cost_usd":    result.CostUSD,
			"result_duration_ms": result.DurationMS,
		})
	if res.Error != nil {
		r.log.Errorw("task_repo_complete_failed", "id", id, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepository) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND status = ?", id, domain.TaskStatusRunning).
		Updates(map[string]any{
			"status":       domain.TaskStatusFailed,
			"completed_at": time.Now(),
			"error":        errMsg,
		})
	if res.Error != nil {
		r.log.Errorw("task_repo_fail_failed", "id", id, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepository) FailAllRunning(ctx context.Context, reason string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("status = ?", domain.TaskStatusRunning).
		Updates(map[string]any{
			"status":       domain.TaskStatusFailed,
			"completed_at": time.Now(),
			"error":        reason,
		})
	if res.Error != nil {
		r.log.Errorw("task_repo_recover_failed", "error", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
