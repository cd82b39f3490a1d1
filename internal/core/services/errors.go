package services

import "errors"

// Queue errors. The race-class errors (already started, duplicate approval,
// unknown approval) are expected under concurrency and map to failed-operation
// responses, never to panics.
var (
	ErrEmptyPrompt    = errors.New("queue: prompt must not be empty")
	ErrInvalidStatus  = errors.New("queue: invalid status filter")
	ErrTaskNotFound   = errors.New("queue: task not found")
	ErrAlreadyStarted = errors.New("queue: task already started")
)

// Approval errors
var (
	ErrDuplicateApproval = errors.New("approval: request id already outstanding")
	ErrApprovalNotFound  = errors.New("approval: request not found or already resolved")
)

// Poller errors
var (
	ErrPollerNotConfigured = errors.New("poller: no gateway configured")
)
