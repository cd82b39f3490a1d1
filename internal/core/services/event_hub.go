package services

import (
	"sync"

	"github.com/agentdeck/backend/internal/domain"
)

// TaskEvent is one progress update pushed to dashboard observers.
type TaskEvent struct {
	TaskID uint64                 `json:"task_id"`
	Phase  domain.Phase           `json:"phase"`
	Kind   domain.StreamEventKind `json:"kind,omitempty"`
	Text   string                 `json:"text,omitempty"`
	Tool   *domain.ToolInvocation `json:"tool,omitempty"`
	Status domain.TaskStatus      `json:"status,omitempty"`
}

// EventHub fans task progress out to any number of subscribers. Publishing
// with no subscribers is free; a slow subscriber drops events rather than
// stalling the dispatcher.
type EventHub struct {
	mu   sync.RWMutex
	subs map[uint64]map[chan TaskEvent]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[uint64]map[chan TaskEvent]struct{})}
}

// Subscribe registers an observer for one task. The returned cancel func
// must be called when the observer goes away.
func (h *EventHub) Subscribe(taskID uint64) (<-chan TaskEvent, func()) {
	ch := make(chan TaskEvent, 64)

	h.mu.Lock()
	if h.subs[taskID] == nil {
		h.subs[taskID] = make(map[chan TaskEvent]struct{})
	}
	h.subs[taskID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[taskID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, taskID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *EventHub) Publish(ev TaskEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.TaskID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
