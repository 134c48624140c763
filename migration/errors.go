package migration

import (
	"fmt"

	"github.com/teranos/pam/errors"
)

// UnitFailure is the error that aborted a batch. It matches errors.ErrUnitFailure
// and unwraps to the container's error.
type UnitFailure struct {
	Unit Unit
	Err  error
}

func (e *UnitFailure) Error() string {
	return fmt.Sprintf("unit %d (%s) failed: %v", e.Unit.Index+1, e.Unit, e.Err)
}

func (e *UnitFailure) Unwrap() error { return e.Err }

func (e *UnitFailure) Is(target error) bool {
	return target == errors.ErrUnitFailure
}
