package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAdmission     = errors.New("admission error")
	ErrExtraction    = errors.New("extraction error")
	ErrResolution    = errors.New("resolution error")
	ErrWorker        = errors.New("worker failure")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ReasonError is a user-facing error. Its text is exactly the message shown to
// callers while errors.Is still matches the marker and the cause.
type ReasonError struct {
	Marker  error
	Message string
	Cause   error
}

func (e *ReasonError) Error() string {
	return e.Message
}

func (e *ReasonError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Reason tags message with marker without decorating the text.
func Reason(marker error, message string, cause error) error {
	message = strings.TrimSpace(message)
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ReasonError{Marker: marker, Message: message, Cause: cause}
}

// Kind returns the name of the first marker err matches, or "" when none match.
func Kind(err error) string {
	for _, marker := range []error{ErrAdmission, ErrExtraction, ErrResolution, ErrWorker, ErrConfiguration, ErrValidation, ErrNotFound, ErrTimeout, ErrExternalTool} {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	return ""
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
