package store

import "fmt"

// ValidationError reports a caller-supplied value the API refuses to store.
// It is surfaced to the view layer, which owns user-facing messaging.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}
