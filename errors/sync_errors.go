package errors

import (
	"errors"
	"fmt"
)

// SyncError is a structured error surfaced to the HTTP layer.
type SyncError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Error codes surfaced by the sync engine.
const (
	CodeFetchFailed      = "fetch_failed"
	CodeExecutorFailed   = "executor_failed"
	CodeBatchInProgress  = "batch_in_progress"
	CodeNotAuthenticated = "not_authenticated"
	CodeProfileNotFound  = "profile_not_found"
	CodeInvalidRequest   = "invalid_request"
	CodeServerError      = "server_error"
)

// Sentinel errors used for control flow inside the engine.
var (
	// ErrBatchInProgress rejects a batch sweep requested while another is
	// already running. The caller is not retried automatically.
	ErrBatchInProgress = errors.New("batch sync already in progress")

	// ErrAuthenticationLost marks an attempt abandoned because the user
	// logged out between enqueue and drain. It does not consume a retry.
	ErrAuthenticationLost = errors.New("user is no longer authenticated")
)

// FetchError is fatal for a single attempt: the base authentication read
// itself was unavailable, so no partial snapshot exists.
type FetchError struct {
	UID string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching identity for %s: %v", e.UID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExecutorError wraps a failure writing to the application store. It is
// retryable by the trigger manager's backoff policy.
type ExecutorError struct {
	UID string
	Err error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executing sync for %s: %v", e.UID, e.Err)
}

func (e *ExecutorError) Unwrap() error { return e.Err }

// Constructors for the HTTP error envelope.

func NewInvalidRequest(description string) *SyncError {
	return &SyncError{Code: CodeInvalidRequest, Description: description}
}

func NewBatchInProgress() *SyncError {
	return &SyncError{Code: CodeBatchInProgress, Description: "a batch sync is already running"}
}

func NewNotAuthenticated(description string) *SyncError {
	return &SyncError{Code: CodeNotAuthenticated, Description: description}
}

func NewServerError(description string) *SyncError {
	return &SyncError{Code: CodeServerError, Description: description}
}
