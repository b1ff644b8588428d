package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MapError maps raw driver and API errors to the Anfora taxonomy.
// Context errors propagate as-is so cancellation is never reclassified.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout: %w", ErrUpstreamAPI)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "token"), strings.Contains(errStr, "unauthorized"),
		strings.Contains(errStr, "invalid_grant"), strings.Contains(errStr, "credential"):
		return fmt.Errorf("mail authentication: %w", ErrAuthRequired)

	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "no such host"),
		strings.Contains(errStr, "timeout"), strings.Contains(errStr, "rate limit"),
		strings.Contains(errStr, "too many requests"):
		return fmt.Errorf("upstream unavailable: %w", ErrUpstreamAPI)

	case strings.Contains(errStr, "invalid input"), strings.Contains(errStr, "bad request"):
		return fmt.Errorf("invalid request: %w", ErrInvalidInput)

	default:
		return fmt.Errorf("internal error: %w", ErrInternal)
	}
}

// Category returns the taxonomy name for an error, for log fields and traces.
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnknownTool):
		return "UnknownTool"
	case errors.Is(err, ErrInvalidArguments):
		return "InvalidArguments"
	case errors.Is(err, ErrUpstreamAPI):
		return "UpstreamAPIFailure"
	case errors.Is(err, ErrAuthRequired):
		return "AuthRequired"
	case errors.Is(err, ErrClassification):
		return "ClassificationFailure"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrInternal):
		return "Internal"
	default:
		return "Unknown"
	}
}

// IsCategory checks whether err belongs to the given sentinel category.
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// UnknownTool wraps a message as an unknown-tool error.
func UnknownTool(message string) error {
	return fmt.Errorf("%s: %w", message, ErrUnknownTool)
}

// InvalidArguments wraps a message as an invalid-arguments error.
func InvalidArguments(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidArguments)
}
