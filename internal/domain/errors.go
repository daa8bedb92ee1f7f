// internal/domain/errors.go
package domain

import "fmt"

// ValidationError reports bad caller input. It is always raised before any
// network call to the provider.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
