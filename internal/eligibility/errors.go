package eligibility

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUpstreamService matches any failure of the external scoring service
var ErrUpstreamService = errors.New("upstream scoring service failed")

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when input is missing or out of domain
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// UpstreamServiceError wraps a failed or malformed prompt-service call
type UpstreamServiceError struct {
	Op  string
	Err error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstreamService, e.Op, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

func (e *UpstreamServiceError) Is(target error) bool { return target == ErrUpstreamService }
