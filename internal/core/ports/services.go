package ports

import (
	"context"
	"time"

	"github.com/agentdeck/backend/internal/domain"
)

// TaskQueueService is the admission and lookup surface of the queue.
type TaskQueueService interface {
	Enqueue(ctx context.Context, prompt, chatID, platform, provider, workDir string) (*domain.Task, error)
	Get(ctx context.Context, id uint64) (*domain.Task, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	Cancel(ctx context.Context, id uint64) error
	Stats(ctx context.Context) (*domain.TaskStats, error)
}

// AgentRunner supervises one external agent process for one task. onEvent,
// when non-nil, receives every decoded stream event in arrival order.
type AgentRunner interface {
	Run(ctx context.Context, task *domain.Task, onEvent func(domain.StreamEvent)) (*domain.TaskResult, error)
}

// ApprovalCoordinator is the rendezvous registry between a request blocked
// waiting for a permission decision and the later request that supplies it.
type ApprovalCoordinator interface {
	// Register adds an outstanding request and returns a channel that yields
	// exactly one decision: the explicit resolution or the deadline deny.
	Register(reqID, toolName, toolInput string) (<-chan domain.ApprovalDecision, error)

	// Resolve records a decision. Returns false when the request is unknown
	// or already resolved; that is an expected race, not an error.
	Resolve(reqID string, allow bool, reason string) bool

	Outstanding() int
}

// ChatUpdate is one inbound message pulled from a chat platform gateway.
type ChatUpdate struct {
	UpdateID string `json:"update_id"`
	ChatID   string `json:"chat_id"`
	Platform string `json:"platform"`
	Text     string `json:"text"`
}

// UpdateSource pulls pending chat updates. Implementations own the
// platform-specific wire format; the poller only sees ChatUpdates.
type UpdateSource interface {
	Poll(ctx context.Context) ([]ChatUpdate, error)
}

// PollerStatus reports whether the background receive loop is active.
type PollerStatus struct {
	Active bool          `json:"active"`
	Uptime time.Duration `json:"uptime"`
}
