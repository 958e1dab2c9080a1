package store

import (
	"errors"
	"fmt"
)

// ErrNoDocument is returned by a Backend when nothing has been persisted yet.
var ErrNoDocument = errors.New("store: no document")

// UnknownTableError reports access to a table that was never provisioned.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("store: unknown table %q", e.Table)
}

// UnknownEntryError reports access to an id that is not present in a table.
type UnknownEntryError struct {
	Table string
	ID    int
}

func (e *UnknownEntryError) Error() string {
	return fmt.Sprintf("store: unknown entry %d in table %q", e.ID, e.Table)
}

// IsUnknownEntry reports whether err carries an UnknownEntryError.
func IsUnknownEntry(err error) bool {
	var target *UnknownEntryError
	return errors.As(err, &target)
}
