package schema

import (
	"errors"
	"fmt"
)

// ErrMissingSource is returned when the raw table is absent for a ticker
var ErrMissingSource = errors.New("missing source table")

// MismatchError reports a configured in_name absent from a raw table
type MismatchError struct {
	Table  string
	Column string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: table %s has no column %s", e.Table, e.Column)
}
