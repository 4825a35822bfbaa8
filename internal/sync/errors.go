package sync

import (
	"errors"
	"fmt"

	"marketplace-sync-service/internal/marketplace"
)

// ErrorCode classifies what went wrong during a sync operation.
type ErrorCode string

const (
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeShapeFailure   ErrorCode = "SHAPE_FAILURE"
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
)

// Operation names the sync phase an error occurred in.
type Operation string

const (
	OpFetch   Operation = "fetch"
	OpResolve Operation = "resolve"
	OpWrite   Operation = "write"
	OpCleanup Operation = "cleanup"
)

// SyncError carries the phase, component, and classification of a failure
// alongside the wrapped cause.
type SyncError struct {
	Op        Operation
	Component string
	Code      ErrorCode
	Retryable bool
	Err       error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s operation failed", e.Op)
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s", e.Op, e.Component)
	}
	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}
	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps a store failure.
func NewStorageError(op Operation, cause error) *SyncError {
	return &SyncError{
		Op:        op,
		Component: "store",
		Code:      ErrCodeStorageFailure,
		Retryable: true,
		Err:       cause,
	}
}

// classifyPageError maps a pagination-client failure onto the taxonomy.
func classifyPageError(err error) *SyncError {
	se := &SyncError{Op: OpFetch, Component: "marketplace", Err: err}

	var shapeErr *marketplace.ShapeError
	switch {
	case errors.Is(err, marketplace.ErrRateLimited):
		se.Code = ErrCodeRateLimited
		se.Retryable = true
	case errors.As(err, &shapeErr):
		se.Code = ErrCodeShapeFailure
	default:
		se.Code = ErrCodeNetworkFailure
		se.Retryable = true
	}
	return se
}
