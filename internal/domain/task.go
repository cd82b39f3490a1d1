package domain

import "time"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status admits no further transition.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// Task is one queued unit of agent work. Rows are append-only: a task is
// never deleted, and after reaching a terminal status it is never mutated.
type Task struct {
	ID       uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Prompt   string     `gorm:"not null" json:"prompt"`
	ChatID   string     `gorm:"index" json:"chat_id,omitempty"`
	Platform string     `json:"platform,omitempty"`
	Provider string     `json:"provider,omitempty"`
	WorkDir  string     `json:"work_dir,omitempty"`
	Status   TaskStatus `gorm:"index;not null" json:"status"`
	Error    string     `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ResultText       string  `gorm:"column:result_text" json:"-"`
	ResultModel      string  `gorm:"column:result_model" json:"-"`
	ResultCostUSD    float64 `gorm:"column:result_cost_usd" json:"-"`
	ResultDurationMS int64   `gorm:"column:result_duration_ms" json:"-"`
}

// TaskResult is the outcome of a completed run.
type TaskResult struct {
	Text       string  `json:"text"`
	Model      string  `json:"model,omitempty"`
	CostUSD    float64 `json:"cost_usd,omitempty"`
	DurationMS int64   `json:"duration_ms,omitempty"`
}

// Result returns the accumulated result, or nil while the task has not
// completed successfully.
func (t *Task) Result() *TaskResult {
	if t.Status != TaskStatusCompleted {
		return nil
	}
	return &TaskResult{
		Text:       t.ResultText,
		Model:      t.ResultModel,
		CostUSD:    t.ResultCostUSD,
		DurationMS: t.ResultDurationMS,
	}
}

// TaskStats aggregates queue counters per status.
type TaskStats struct {
	Pending    int64 `json:"pending"`
	Running    int64 `json:"running"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
	QueueDepth int64 `json:"queue_depth"`
}

// TaskFilter narrows List queries. Zero values mean "no constraint".
type TaskFilter struct {
	Status TaskStatus
	ChatID string
	Limit  int
}
