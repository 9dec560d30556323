// Package errors defines the error taxonomy of the orchestration core.
//
// Internal stages never surface raw errors: the router translates every
// failure into one of the categories here before returning. Degraded-input
// failures (triage or context assembly) are absorbed inside their stage and
// never reach the caller at all.
package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType classifies an error for propagation decisions.
type ErrorType int

const (
	// ErrorTypeTransient marks errors that a caller may retry.
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent marks errors that retrying cannot fix.
	ErrorTypePermanent
	// ErrorTypeDegraded marks errors the core absorbed by falling back to
	// reduced functionality.
	ErrorTypeDegraded
)

// TransientError represents an error a caller may retry. The core itself
// never retries: retry policy belongs to the caller.
type TransientError struct {
	Err     error
	Message string
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError represents an error that should not be retried.
type PermanentError struct {
	Err     error
	Message string
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// DegradedError records that a stage continued with reduced functionality,
// e.g. heuristic triage after the classify backend failed.
type DegradedError struct {
	Err      error
	Fallback string
	Message  string
}

func (e *DegradedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("degraded: %v", e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

// ServiceUnavailableError is returned when every dispatched backend failed
// for a query. It is fatal for that query; the router does not retry.
type ServiceUnavailableError struct {
	QueryID  string
	Backends []string
	Causes   []error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("all %d backends failed for query %s", len(e.Backends), e.QueryID)
}

func (e *ServiceUnavailableError) Unwrap() []error { return e.Causes }

// IntegrityError reports a ledger hash mismatch. It is a distinct,
// non-recoverable finding: the stored record is never auto-repaired.
type IntegrityError struct {
	EntryID    string
	StoredHash string
	ActualHash string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger entry %s failed integrity check: stored hash %s, recomputed %s",
		e.EntryID, e.StoredHash, e.ActualHash)
}

// IsServiceUnavailable reports whether err wraps a ServiceUnavailableError.
func IsServiceUnavailable(err error) bool {
	var sue *ServiceUnavailableError
	return errors.As(err, &sue)
}

// IsIntegrityViolation reports whether err wraps an IntegrityError.
func IsIntegrityViolation(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsTransient reports whether an error is retry-able by the caller.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}
	if isNetworkError(err) {
		return true
	}
	return false
}

// IsDegraded reports whether an error allows degraded continuation.
func IsDegraded(err error) bool {
	var degraded *DegradedError
	return errors.As(err, &degraded)
}

// Classify returns the propagation category of an error. Unknown errors
// default to permanent so callers do not retry blindly.
func Classify(err error) ErrorType {
	if IsDegraded(err) {
		return ErrorTypeDegraded
	}
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"broken pipe",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// NewTransient wraps err as a transient error with a caller-facing message.
func NewTransient(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

// NewPermanent wraps err as a permanent error with a caller-facing message.
func NewPermanent(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

// NewDegraded wraps err recording the fallback that was applied.
func NewDegraded(err error, message, fallback string) *DegradedError {
	return &DegradedError{Err: err, Message: message, Fallback: fallback}
}
