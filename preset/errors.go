package preset

import "fmt"

// ValidationError reports missing or malformed configuration. It is raised
// while loading, before any note is processed.
type ValidationError struct {
	File  string
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("invalid config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid config %s: %s: %v", e.File, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(file, field, format string, args ...interface{}) error {
	return &ValidationError{File: file, Field: field, Err: fmt.Errorf(format, args...)}
}

func missing(file, field string) error {
	return invalid(file, field, "required key missing")
}
