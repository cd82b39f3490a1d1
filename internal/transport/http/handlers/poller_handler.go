package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/agentdeck/backend/internal/core/services"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
	"github.com/agentdeck/backend/internal/transport/http/dto"
)

type PollerHandler struct {
	service *services.PollerService
	logger  *logger.Logger
}

func NewPollerHandler(service *services.PollerService, logger *logger.Logger) *PollerHandler {
	return &PollerHandler{service: service, logger: logger}
}

func (h *PollerHandler) Start(c *fiber.Ctx) error {
	h.logger.Infow("poller_start_request")
	if err := h.service.Start(); err != nil {
		if errors.Is(err, services.ErrPollerNotConfigured) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("poller_start_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.PollerStatusToResponse(h.service.Status()))
}

func (h *PollerHandler) Stop(c *fiber.Ctx) error {
	h.logger.Infow("poller_stop_request")
	h.service.Stop()
	return c.JSON(dto.PollerStatusToResponse(h.service.Status()))
}

func (h *PollerHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(dto.PollerStatusToResponse(h.service.Status()))
}
