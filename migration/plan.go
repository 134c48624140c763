package migration

import (
	"fmt"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/owner"
)

// Unit is one container call.
type Unit struct {
	Index     int
	Operation Operation
	Artefact  artefact.Artefact
	// Target is nil for OpDelete.
	Target *owner.Owner
}

func (u Unit) String() string {
	if u.Target == nil {
		return fmt.Sprintf("%s %s", u.Operation, u.Artefact)
	}
	return fmt.Sprintf("%s %s -> %s", u.Operation, u.Artefact, u.Target.Name)
}

// Plan is the fixed, ordered unit list for one run.
type Plan struct {
	Operation Operation
	Units     []Unit
}

// NewPlan expands r into units. Delete yields one unit per artefact; Assign and
// Duplicate yield the target-major cross product of targets and artefacts.
func NewPlan(r Request) Plan {
	p := Plan{Operation: r.Operation}

	if !r.Operation.NeedsTargets() {
		p.Units = make([]Unit, 0, len(r.Artefacts))
		for _, a := range r.Artefacts {
			p.Units = append(p.Units, Unit{Index: len(p.Units), Operation: r.Operation, Artefact: a})
		}
		return p
	}

	p.Units = make([]Unit, 0, len(r.Artefacts)*len(r.Targets))
	for i := range r.Targets {
		target := r.Targets[i]
		for _, a := range r.Artefacts {
			p.Units = append(p.Units, Unit{Index: len(p.Units), Operation: r.Operation, Artefact: a, Target: &target})
		}
	}
	return p
}

// Total is the number of units.
func (p Plan) Total() int { return len(p.Units) }
