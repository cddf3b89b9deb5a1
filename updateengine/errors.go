package updateengine

import (
	"fmt"

	"gasdb/gderrors"
)

func errInvalidQuery(format string, args ...any) error {
	return fmt.Errorf("%w: %s", gderrors.ErrInvalidQuery, fmt.Sprintf(format, args...))
}

func errTypeConflict(segment string) error {
	return errInvalidQuery("path component %q conflicts with an existing non-container value", segment)
}
