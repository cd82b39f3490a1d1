package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/agentdeck/backend/internal/core/services"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
	"github.com/agentdeck/backend/internal/transport/http/dto"
)

type ApprovalHandler struct {
	service *services.ApprovalService
	logger  *logger.Logger
}

func NewApprovalHandler(service *services.ApprovalService, logger *logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{service: service, logger: logger}
}

// SubmitApproval registers a permission request and blocks the connection
// until it is resolved or the deadline denies it. The agent-side hook calls
// this and acts on the returned decision.
func (h *ApprovalHandler) SubmitApproval(c *fiber.Ctx) error {
	var req dto.SubmitApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("approval_submit_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errors := req.Validate(); len(errors) > 0 {
		h.logger.Warnw("approval_submit_validation_failed", "details", errors)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errors,
		})
	}

	ch, err := h.service.Register(req.ReqID, req.ToolName, req.ToolInput)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateApproval) {
			h.logger.Warnw("approval_submit_duplicate", "req_id", req.ReqID)
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		}
		h.logger.Errorw("approval_submit_failed", "req_id", req.ReqID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	// The registry guarantees exactly one decision per registration, so this
	// receive always returns; the deadline timer bounds the wait.
	decision := <-ch

	return c.JSON(dto.ApprovalDecisionResponse{
		Decision: decision.Verdict(),
		TimedOut: decision.TimedOut,
		Reason:   decision.Reason,
	})
}

// ResolveApproval settles an outstanding request. Resolving an unknown or
// already-settled id reports not found; the race against the deadline timer
// is expected and not an error condition server-side.
func (h *ApprovalHandler) ResolveApproval(c *fiber.Ctx) error {
	reqID := c.Params("id")
	if reqID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "approval id is required",
		})
	}

	var req dto.ResolveApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("approval_resolve_body_parse_failed", "req_id", reqID, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if ok := h.service.Resolve(reqID, req.Allow, req.Reason); !ok {
		h.logger.Warnw("approval_resolve_unknown", "req_id", reqID)
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: services.ErrApprovalNotFound.Error(),
		})
	}

	return c.JSON(dto.SuccessResponse{
		Message: "approval resolved",
	})
}

func (h *ApprovalHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(dto.ApprovalStatusResponse{
		Outstanding: h.service.Outstanding(),
		Timeout:     h.service.Timeout().String(),
	})
}
