package llm

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrorCategory defines standardized error categories for the audit trail
type ErrorCategory string

const (
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryAuthorization  ErrorCategory = "authorization"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryRateLimit      ErrorCategory = "rate_limit"
	ErrorCategoryBlocked        ErrorCategory = "blocked"
	ErrorCategorySystem         ErrorCategory = "system"
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryModel          ErrorCategory = "model"
)

// GuardError wraps errors with standardized metadata
type GuardError struct {
	Category    ErrorCategory
	OriginalErr error
	RequestID   string
	Timestamp   time.Time
	Details     map[string]interface{}
}

func (e GuardError) Error() string {
	return fmt.Sprintf("[%s] %s (request: %s)", e.Category, e.OriginalErr.Error(), e.RequestID)
}

func (e GuardError) Unwrap() error {
	return e.OriginalErr
}

// newGuardError creates a new GuardError with standard fields
func newGuardError(category ErrorCategory, err error, requestID string, details map[string]interface{}) GuardError {
	return GuardError{
		Category:    category,
		OriginalErr: err,
		RequestID:   requestID,
		Timestamp:   time.Now(),
		Details:     details,
	}
}

// IsBlocked reports whether err is an enforcement block
func IsBlocked(err error) bool {
	var gErr GuardError
	return errors.As(err, &gErr) && gErr.Category == ErrorCategoryBlocked
}

// ErrorReporter handles standardized error reporting
type ErrorReporter struct {
	logger *slog.Logger
}

// NewErrorReporter creates a new error reporter
func NewErrorReporter(logger *slog.Logger) *ErrorReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorReporter{
		logger: logger,
	}
}

// ReportError logs an error with its category and details
func (e *ErrorReporter) ReportError(err error) {
	var gErr GuardError
	if !errors.As(err, &gErr) {
		e.logger.Error("Guarded call failed", "error", err)
		return
	}

	attrs := []any{
		"category", string(gErr.Category),
		"request_id", gErr.RequestID,
		"error", gErr.OriginalErr,
	}
	if len(gErr.Details) > 0 {
		attrs = append(attrs, "details", gErr.Details)
	}

	// enforcement blocks are expected outcomes, not failures
	if gErr.Category == ErrorCategoryBlocked {
		e.logger.Warn("Guarded call blocked", attrs...)
		return
	}
	e.logger.Error("Guarded call failed", attrs...)
}

// categorizeError categorizes error based on error message
func categorizeError(err error) ErrorCategory {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "authentication"):
		return ErrorCategoryAuthentication
	case strings.Contains(errStr, "permission") || strings.Contains(errStr, "access denied"):
		return ErrorCategoryAuthorization
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests"):
		return ErrorCategoryRateLimit
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ErrorCategoryTimeout
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return ErrorCategoryNetwork
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "validation"):
		return ErrorCategoryValidation
	}
	return ErrorCategorySystem
}
