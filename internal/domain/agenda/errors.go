package agenda

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced expediente or agenda does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlotTaken indicates the slot-uniqueness invariant blocked the write:
	// either a concurrent insert on the same slot or a booking race on a slot
	// that is no longer LIVRE.
	ErrSlotTaken = errors.New("slot no longer available")
)

// ValidationError reports a structurally invalid or incomplete request. It is
// surfaced to the caller immediately and never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func validationErr(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
