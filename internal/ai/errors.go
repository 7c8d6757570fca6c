package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidResponse marks generator output that could not be parsed or
	// did not satisfy the question schema.
	ErrInvalidResponse = errors.New("invalid AI response")
	// ErrGenerationFailed marks a generation that exhausted every attempt.
	ErrGenerationFailed = errors.New("quiz generation failed")
)

// FieldError is a single schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidResponseError describes why generator output was rejected.
type InvalidResponseError struct {
	Reason string
	Fields []FieldError
	Err    error
}

func (e *InvalidResponseError) Error() string {
	var b strings.Builder
	b.WriteString("invalid AI response: ")
	b.WriteString(e.Reason)
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

func (e *InvalidResponseError) Is(target error) bool { return target == ErrInvalidResponse }

// GenerationError is returned once the retry budget is spent. Err is the last
// failure observed.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("quiz generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }
