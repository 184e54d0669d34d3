package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrNoMatch           = errors.New("no match")
	ErrStaleMapping      = errors.New("stale mapping")
	ErrPersistence       = errors.New("persistence failure")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
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

// UserMessage maps an error to a short sentence suitable for end users. Scoring
// details and causes are never included.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoMatch), errors.Is(err, ErrStaleMapping):
		return "This title is not available from this source."
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return "The source is temporarily unavailable. Try again later."
	case errors.Is(err, ErrNotFound):
		return "The requested title could not be found."
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return "The request could not be processed. Check the configuration."
	default:
		return "Something went wrong."
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
