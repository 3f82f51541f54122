package validation

import (
	"errors"
	"fmt"
)

// Error reports a missing or malformed input field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Required(field string) error {
	return &Error{Field: field, Reason: "is required"}
}

func Invalid(field, reason string) error {
	return &Error{Field: field, Reason: reason}
}

// IsValidation reports whether err carries a validation Error.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}
