package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TAXONOMY
// Data errors from third parties are never fatal; only configuration and
// process-internal invariant violations are.
// =============================================================================

// ErrorCode classifies engine errors for the orchestrator and the report.
type ErrorCode string

const (
	CodeConfig      ErrorCode = "E_CONFIG"       // Lens/config problems: fatal
	CodeTimeout     ErrorCode = "E_TIMEOUT"      // Connector fetch timed out
	CodeRateLimited ErrorCode = "E_RATE_LIMITED" // Daily connector quota hit
	CodeFetch       ErrorCode = "E_FETCH"        // Network/deserialisation failure
	CodeMapping     ErrorCode = "E_MAPPING"      // Raw item could not be mapped
	CodeExtraction  ErrorCode = "E_EXTRACTION"   // Phase 1/2 failure, incl. boundary violations
	CodePersistence ErrorCode = "E_PERSISTENCE"  // Database/file write failure
	CodeUnknown     ErrorCode = "E_UNKNOWN"
)

// CodedError carries a classification alongside the underlying error.
type CodedError struct {
	Code ErrorCode
	Err  error
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

// NewCodedError wraps err with a code.
func NewCodedError(code ErrorCode, err error) *CodedError {
	return &CodedError{Code: code, Err: err}
}

// ConfigError builds a fatal configuration error.
func ConfigError(format string, args ...any) error {
	return &CodedError{Code: CodeConfig, Err: fmt.Errorf(format, args...)}
}

// IsConfigError reports whether err is fatal configuration trouble.
func IsConfigError(err error) bool {
	return ClassifyError(err) == CodeConfig
}

// ClassifyError maps an arbitrary error onto the taxonomy.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return CodeTimeout
	}
	if strings.Contains(msg, "rate limit") {
		return CodeRateLimited
	}
	return CodeUnknown
}
