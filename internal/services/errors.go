package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vinylscout/internal/catalog"
)

var (
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTransient       = errors.New("transient failure")
	// ErrRateLimited marks a run stopped because a vendor started refusing requests.
	ErrRateLimited = errors.New("rate limited")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a run error to the status recorded on the sync run.
// Rate limiting and cancellation leave the catalog untouched past the last
// completed product, so they are reported as aborted rather than failed.
func FailureStatus(err error) catalog.RunStatus {
	switch {
	case err == nil:
		return catalog.RunCompleted
	case errors.Is(err, ErrRateLimited), errors.Is(err, context.Canceled):
		return catalog.RunAborted
	default:
		return catalog.RunFailed
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{component, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
