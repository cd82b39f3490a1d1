package dto

import "strings"

type SubmitApprovalRequest struct {
	ReqID     string `json:"req_id" validate:"required"`
	ToolName  string `json:"tool_name" validate:"required"`
	ToolInput string `json:"tool_input,omitempty"`
}

func (r *SubmitApprovalRequest) Validate() []string {
	var errors []string

	if strings.TrimSpace(r.ReqID) == "" {
		errors = append(errors, "req_id is required")
	}
	if strings.TrimSpace(r.ToolName) == "" {
		errors = append(errors, "tool_name is required")
	}

	return errors
}

type ResolveApprovalRequest struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// ApprovalDecisionResponse is returned to the blocked submitter once the
// request settles.
type ApprovalDecisionResponse struct {
	Decision string `json:"decision"` // "allow" or "deny"
	TimedOut bool   `json:"timed_out,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type ApprovalStatusResponse struct {
	Outstanding int    `json:"outstanding"`
	Timeout     string `json:"timeout"`
}
