package actor

import (
	"fmt"

	"github.com/upkedit/upkedit/errors"
)

var (
	// ErrStaleOffsets is returned by the accessors of an actor whose
	// recorded offsets no longer match its data. Call Rescan to recover.
	ErrStaleOffsets = errors.New("actor offsets are stale")

	// ErrAbsent is returned by a setter when none of the properties it writes
	// occur in the data.
	ErrAbsent = errors.New("property not present in actor")

	// ErrLayout indicates a known property whose payload has an unexpected
	// layout.
	ErrLayout = fmt.Errorf("unexpected property layout: %w", errors.ErrMalformed)
)
