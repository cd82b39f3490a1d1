package handlers

import (
	"strconv"

	"github.com/gofiber/contrib/websocket"

	"github.com/agentdeck/backend/internal/core/services"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

// EventsHandler streams task progress over a websocket. Each connection
// subscribes to one task's feed and is closed once the task reaches a
// terminal status.
type EventsHandler struct {
	hub    *services.EventHub
	logger *logger.Logger
}

func NewEventsHandler(hub *services.EventHub, logger *logger.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

func (h *EventsHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	idStr := c.Params("id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		h.logger.Warnw("events_invalid_task_id", "id", idStr)
		c.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid task id"}`))
		return
	}

	events, cancel := h.hub.Subscribe(id)
	defer cancel()

	h.logger.Infow("events_subscriber_attached", "task_id", id)

	// Reads are only used to observe the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Infow("events_subscriber_detached", "task_id", id)
			return
		case ev := <-events:
			if err := c.WriteJSON(ev); err != nil {
				h.logger.Warnw("events_write_failed", "task_id", id, "error", err)
				return
			}
			if ev.Status.Terminal() {
				h.logger.Infow("events_feed_complete", "task_id", id, "status", ev.Status)
				return
			}
		}
	}
}
