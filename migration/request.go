package migration

import (
	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/owner"
)

// Request is everything an operator selected for one batch.
type Request struct {
	Operation Operation
	Source    owner.Owner
	Artefacts []artefact.Artefact
	// Targets is ignored for OpDelete.
	Targets []owner.Owner
}

// Validate checks the preconditions a caller must satisfy before running a batch.
// The engine does not call it.
func (r Request) Validate() error {
	if _, ok := ParseOperation(string(r.Operation)); !ok {
		err := errors.NewInvalidRequestError("no operation selected")
		return errors.WithHint(err, "choose one of duplicate, assign or delete")
	}
	if r.Source.ID == "" {
		return errors.NewInvalidRequestError("no source owner selected")
	}
	if len(r.Artefacts) == 0 {
		return errors.NewInvalidRequestError("no artefacts selected")
	}
	if r.Operation.NeedsTargets() && len(r.Targets) == 0 {
		err := errors.NewInvalidRequestError("%s needs at least one target owner", r.Operation.Label())
		return errors.WithHint(err, "pass --target once per owner")
	}
	return nil
}
