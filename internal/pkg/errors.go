package pkg

import "fmt"

// Error kinds shared by every component. Wrap them with %w or HubError so
// callers can classify failures with errors.Is.
var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrInvalidFormat   = fmt.Errorf("invalid format")
	ErrInvalidArchive  = fmt.Errorf("invalid archive: %w", ErrInvalidFormat)
	ErrConflict        = fmt.Errorf("conflict")
	ErrExternalProcess = fmt.Errorf("external process failed")
)

// HubError provides detailed error information
type HubError struct {
	Kind    error
	Message string
	Details map[string]interface{}
}

func (e *HubError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return e.Kind.Error()
}

func (e *HubError) Unwrap() error {
	return e.Kind
}

// NewError creates a new hub error of the given kind
func NewError(kind error, message string) *HubError {
	return &HubError{
		Kind:    kind,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// With attaches a detail and returns the error for chaining
func (e *HubError) With(key string, value interface{}) *HubError {
	e.Details[key] = value
	return e
}
