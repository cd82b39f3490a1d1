package domain

import "time"

// ApprovalRequest is a pending human-in-the-loop permission decision raised
// by an in-flight agent process. The ID is caller-supplied and must be unique
// while the request is outstanding.
type ApprovalRequest struct {
	ID        string    `json:"id"`
	ToolName  string    `json:"tool_name"`
	ToolInput string    `json:"tool_input"`
	CreatedAt time.Time `json:"created_at"`
	Deadline  time.Time `json:"deadline"`
}

// ApprovalDecision is the single terminal outcome of an approval request.
// TimedOut marks the fail-closed deadline deny so logs can tell it apart
// from an explicit human denial.
type ApprovalDecision struct {
	Allow    bool   `json:"allow"`
	TimedOut bool   `json:"timed_out"`
	Reason   string `json:"reason"`
}

func (d ApprovalDecision) Verdict() string {
	if d.Allow {
		return "allow"
	}
	return "deny"
}
