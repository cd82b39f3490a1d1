package dto

import (
	"time"

	"github.com/agentdeck/backend/internal/core/ports"
)

type PollerStatusResponse struct {
	Active bool   `json:"active"`
	Uptime string `json:"uptime,omitempty"`
}

func PollerStatusToResponse(status ports.PollerStatus) PollerStatusResponse {
	resp := PollerStatusResponse{Active: status.Active}
	if status.Active {
		resp.Uptime = status.Uptime.Round(time.Second).String()
	}
	return resp
}
