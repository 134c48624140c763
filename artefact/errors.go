package artefact

import (
	"fmt"

	"github.com/teranos/pam/errors"
)

// UnknownTypeError reports a type id with no registered container.
// It matches errors.ErrUnknownArtefactType.
type UnknownTypeError struct {
	TypeID string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown artefact type %q", e.TypeID)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == errors.ErrUnknownArtefactType
}
