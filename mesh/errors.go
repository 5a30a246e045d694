package mesh

import (
	"fmt"

	"github.com/upkedit/upkedit/errors"
)

// LayoutError indicates a material slot whose layout is not known to the
// reader. The slot is left empty.
type LayoutError struct {
	// Slot is the index of the element within the Materials array.
	Slot int

	// Property is the name of the property that could not be read.
	Property string

	Cause error
}

func (err LayoutError) Error() string {
	if err.Cause == nil {
		return fmt.Sprintf("material slot %d: %s: %s", err.Slot, err.Property, errors.ErrUnsupportedLayout)
	}
	return fmt.Sprintf("material slot %d: %s: %s", err.Slot, err.Property, err.Cause)
}

func (err LayoutError) Unwrap() error {
	return err.Cause
}

func (err LayoutError) Is(target error) bool {
	return target == errors.ErrUnsupportedLayout
}

// FieldError indicates a failure to read a field of the geometry layout.
type FieldError struct {
	Field string

	// Offset is the offset in the blob where reading the field began.
	Offset int64

	Cause error
}

func (err FieldError) Error() string {
	return fmt.Sprintf("static mesh field %s at %d: %s", err.Field, err.Offset, err.Cause)
}

func (err FieldError) Unwrap() error {
	return err.Cause
}

func (err FieldError) Is(target error) bool {
	return target == errors.ErrMalformed
}
