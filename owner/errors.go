package owner

import (
	"fmt"
	"strings"

	"github.com/teranos/pam/errors"
)

// Phase names one stage of a directory load.
type Phase string

const (
	PhaseUsers Phase = "users"
	PhaseTeams Phase = "teams"
)

// QueryFailure records a failed load phase. It matches errors.ErrQueryFailure.
type QueryFailure struct {
	Phase  Phase
	Entity string
	Err    error
}

func (e *QueryFailure) Error() string {
	return fmt.Sprintf("query failure in %s phase (%s): %v", e.Phase, e.Entity, e.Err)
}

func (e *QueryFailure) Unwrap() error { return e.Err }

// Is reports kind membership so errors.Is(err, errors.ErrQueryFailure) holds.
func (e *QueryFailure) Is(target error) bool {
	return target == errors.ErrQueryFailure
}

// LoadError is returned alongside a snapshot when one or more phases failed.
// The snapshot still holds whatever the successful phases returned.
type LoadError struct {
	Failures []*QueryFailure
}

func (e *LoadError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "directory load incomplete: " + strings.Join(parts, "; ")
}

// Is matches errors.ErrQueryFailure and anything one of the failures matches.
func (e *LoadError) Is(target error) bool {
	if target == errors.ErrQueryFailure {
		return true
	}
	for _, f := range e.Failures {
		if errors.Is(f.Err, target) {
			return true
		}
	}
	return false
}

// Failed reports whether the given phase failed.
func (e *LoadError) Failed(p Phase) bool {
	for _, f := range e.Failures {
		if f.Phase == p {
			return true
		}
	}
	return false
}
