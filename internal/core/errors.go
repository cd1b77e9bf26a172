package core

import (
	"fmt"
	"time"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid rule/threshold parameters
	ErrCatSpawn      ErrorCategory = "spawn"      // Child process could not be started
	ErrCatTimeout    ErrorCategory = "timeout"    // Wait exceeded its deadline
	ErrCatKill       ErrorCategory = "kill"       // Best-effort termination failed
	ErrCatSnapshot   ErrorCategory = "snapshot"   // A metric source was unavailable
	ErrCatSink       ErrorCategory = "sink"       // Notification delivery failed
	ErrCatRecovery   ErrorCategory = "recovery"   // Remediation action failed
	ErrCatNetwork    ErrorCategory = "network"    // Probe connectivity failure
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the diagnosis domain.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && (t.Code == "" || e.Code == t.Code)
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// ErrSpawn creates an error for a failed process start.
// Fatal to the single spawn call only.
func ErrSpawn(command string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatSpawn,
		Code:      "SPAWN_FAILED",
		Message:   fmt.Sprintf("starting %q", command),
		Retryable: true,
		Cause:     cause,
	}
}

// ErrTimeout creates an error for a wait that exceeded its deadline.
// Always accompanied by a forced kill of the process.
func ErrTimeout(pid int, timeout time.Duration) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "WAIT_TIMEOUT",
		Message:   fmt.Sprintf("process %d exceeded %s", pid, timeout),
		Retryable: true,
	}
}

// ErrKill creates an error for a failed termination attempt.
// Callers log and swallow these; killing is always best-effort.
func ErrKill(pid int, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatKill,
		Code:      "KILL_FAILED",
		Message:   fmt.Sprintf("terminating process %d", pid),
		Retryable: false,
		Cause:     cause,
	}
}

// ErrValidation creates a configuration-time validation error.
// These propagate to the caller as hard failures.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrSink creates a notification delivery error, isolated per sink.
func ErrSink(sink string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatSink,
		Code:      "SINK_DELIVERY",
		Message:   fmt.Sprintf("delivering to sink %q", sink),
		Retryable: true,
		Cause:     cause,
	}
}

// ErrRecovery creates an error for a failed remediation action.
// Recorded on the attempt, never aborts the cycle.
func ErrRecovery(action string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatRecovery,
		Code:      "ACTION_FAILED",
		Message:   fmt.Sprintf("running action %q", action),
		Retryable: true,
		Cause:     cause,
	}
}

// ErrNetwork creates a probe connectivity error.
func ErrNetwork(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// IsCategory reports whether err is a DomainError of the given category.
func IsCategory(err error, cat ErrorCategory) bool {
	for err != nil {
		if de, ok := err.(*DomainError); ok {
			return de.Category == cat
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
