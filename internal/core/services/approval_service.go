package services

import (
	"sync"
	"time"

	"github.com/agentdeck/backend/internal/domain"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

// ApprovalService is the rendezvous registry for permission decisions: one
// inbound request suspends on Register's channel until a different, later
// request calls Resolve, or the deadline fires a fail-closed deny.
type ApprovalService struct {
	log     *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*approvalWaiter
}

type approvalWaiter struct {
	req   domain.ApprovalRequest
	ch    chan domain.ApprovalDecision
	timer *time.Timer
}

func NewApprovalService(timeout time.Duration, log *logger.Logger) *ApprovalService {
	return &ApprovalService{
		log:     log,
		timeout: timeout,
		pending: make(map[string]*approvalWaiter),
	}
}

// Register adds an outstanding request keyed by reqID and arms its deadline
// timer. A duplicate id while the first is outstanding is a caller error.
// The returned channel yields exactly one decision.
func (s *ApprovalService) Register(reqID, toolName, toolInput string) (<-chan domain.ApprovalDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[reqID]; exists {
		return nil, ErrDuplicateApproval
	}

	now := time.Now()
	w := &approvalWaiter{
		req: domain.ApprovalRequest{
			ID:        reqID,
			ToolName:  toolName,
			ToolInput: toolInput,
			CreatedAt: now,
			Deadline:  now.Add(s.timeout),
		},
		// Capacity one: resolution never blocks on a slow waiter.
		ch: make(chan domain.ApprovalDecision, 1),
	}
	w.timer = time.AfterFunc(s.timeout, func() {
		s.expire(reqID)
	})
	s.pending[reqID] = w

	s.log.Infow("approval_registered", "req_id", reqID, "tool", toolName, "timeout", s.timeout)
	return w.ch, nil
}

// Resolve records a decision for an outstanding request. The first call to
// remove the id from the registry wins; later calls, including a racing
// deadline expiry, are no-ops returning false.
func (s *ApprovalService) Resolve(reqID string, allow bool, reason string) bool {
	decision := domain.ApprovalDecision{Allow: allow, Reason: reason}
	if ok := s.settle(reqID, decision); !ok {
		return false
	}
	s.log.Infow("approval_resolved", "req_id", reqID, "verdict", decision.Verdict())
	return true
}

func (s *ApprovalService) expire(reqID string) {
	decision := domain.ApprovalDecision{
		Allow:    false,
		TimedOut: true,
		Reason:   "approval timed out",
	}
	if ok := s.settle(reqID, decision); ok {
		s.log.Warnw("approval_timed_out", "req_id", reqID)
	}
}

// settle removes the waiter under the lock and delivers the decision. The
// map delete is the linearization point of the exactly-once guarantee.
func (s *ApprovalService) settle(reqID string, decision domain.ApprovalDecision) bool {
	s.mu.Lock()
	w, exists := s.pending[reqID]
	if !exists {
		s.mu.Unlock()
		return false
	}
	delete(s.pending, reqID)
	s.mu.Unlock()

	w.timer.Stop()
	w.ch <- decision
	return true
}

// Outstanding reports how many requests are currently awaiting a decision.
func (s *ApprovalService) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Timeout exposes the configured deadline for status reporting.
func (s *ApprovalService) Timeout() time.Duration {
	return s.timeout
}
