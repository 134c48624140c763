package artefact

import (
	"context"

	"github.com/teranos/pam/owner"
)

// Artefact is one personal artefact as returned by its container. The owning
// container is reached through Type, never held directly.
type Artefact struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Type        Type       `json:"type" yaml:"type"`
	OwnerID     string     `json:"owner_id" yaml:"owner_id"`
	OwnerKind   owner.Kind `json:"owner_kind" yaml:"owner_kind"`
}

func (a Artefact) String() string {
	return a.Name + " (" + a.ID + ")"
}

// Container performs all record-store work for one artefact type.
//
// Implementations must be safe for sequential use from one goroutine; the
// migration engine only calls them concurrently when configured to.
type Container interface {
	Type() Type
	QueryByOwner(ctx context.Context, o owner.Owner) ([]Artefact, error)
	Delete(ctx context.Context, a Artefact) error
	Assign(ctx context.Context, a Artefact, target owner.Owner) error
	// Duplicate copies a for target and returns the copy.
	Duplicate(ctx context.Context, a Artefact, target owner.Owner) (Artefact, error)
}
