package t3d

import (
	"fmt"

	"github.com/upkedit/upkedit/errors"
)

// ReferenceError indicates an object reference that could not be resolved to
// an import or export entry.
type ReferenceError struct {
	Property  string
	Reference int32
	Cause     error
}

func (err ReferenceError) Error() string {
	if err.Cause == nil {
		return fmt.Sprintf("property %q: object reference %d: %s", err.Property, err.Reference, errors.ErrInvariant)
	}
	return fmt.Sprintf("property %q: object reference %d: %s", err.Property, err.Reference, err.Cause)
}

func (err ReferenceError) Unwrap() error {
	return err.Cause
}

func (err ReferenceError) Is(target error) bool {
	return target == errors.ErrInvariant
}
