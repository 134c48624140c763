// Package artefacttest provides an in-memory, call-recording artefact container for tests.
package artefacttest

import (
	"context"
	"sync"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/owner"
)

// Call is one recorded container invocation.
type Call struct {
	Method     string
	ArtefactID string
	TargetID   string
}

// Container is an artefact.Container backed by a map of owner ID to artefacts.
type Container struct {
	T artefact.Type

	// Hook, when set, runs at the start of every mutating call outside the lock.
	Hook func(ctx context.Context, c Call) error

	mu       sync.Mutex
	byOwner  map[string][]artefact.Artefact
	calls    []Call
	failures map[Call]error
	queryErr error
}

// New creates an empty container for t.
func New(t artefact.Type) *Container {
	return &Container{
		T:        t,
		byOwner:  make(map[string][]artefact.Artefact),
		failures: make(map[Call]error),
	}
}

// Add stores artefacts under o and returns them with Type and owner filled in.
func (c *Container) Add(o owner.Owner, list ...artefact.Artefact) []artefact.Artefact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]artefact.Artefact, len(list))
	for i, a := range list {
		a.Type = c.T
		a.OwnerID = o.ID
		a.OwnerKind = o.Kind
		out[i] = a
	}
	c.byOwner[o.ID] = append(c.byOwner[o.ID], out...)
	return out
}

// FailOn makes the matching call return err.
func (c *Container) FailOn(call Call, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[call] = err
}

// FailQueries makes QueryByOwner return err.
func (c *Container) FailQueries(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryErr = err
}

// Calls returns the recorded calls in order.
func (c *Container) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *Container) Type() artefact.Type { return c.T }

func (c *Container) QueryByOwner(_ context.Context, o owner.Owner) ([]artefact.Artefact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: "query", TargetID: o.ID})
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	list := c.byOwner[o.ID]
	out := make([]artefact.Artefact, len(list))
	copy(out, list)
	return out, nil
}

func (c *Container) Delete(ctx context.Context, a artefact.Artefact) error {
	return c.record(ctx, Call{Method: "delete", ArtefactID: a.ID})
}

func (c *Container) Assign(ctx context.Context, a artefact.Artefact, target owner.Owner) error {
	return c.record(ctx, Call{Method: "assign", ArtefactID: a.ID, TargetID: target.ID})
}

func (c *Container) Duplicate(ctx context.Context, a artefact.Artefact, target owner.Owner) (artefact.Artefact, error) {
	if err := c.record(ctx, Call{Method: "duplicate", ArtefactID: a.ID, TargetID: target.ID}); err != nil {
		return artefact.Artefact{}, err
	}
	dup := a
	dup.ID = a.ID + "@" + target.ID
	dup.OwnerID = target.ID
	dup.OwnerKind = target.Kind
	return dup, nil
}

func (c *Container) record(ctx context.Context, call Call) error {
	if c.Hook != nil {
		if err := c.Hook(ctx, call); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.failures[call]
}
