package migration

import "github.com/teranos/pam/errors"

// ProgressMode selects how completed units map to a percentage.
type ProgressMode string

const (
	// ProgressStep adds a fixed integer step of 100/total per unit and reports
	// exactly 100 for the last unit. With more than 100 units the step is 0 and
	// the bar jumps from 0 to 100 at the end.
	ProgressStep ProgressMode = "step"
	// ProgressExact reports floor(100*completed/total).
	ProgressExact ProgressMode = "exact"
)

// ParseProgressMode validates a configured mode; "" means ProgressStep.
func ParseProgressMode(s string) (ProgressMode, error) {
	switch ProgressMode(s) {
	case "", ProgressStep:
		return ProgressStep, nil
	case ProgressExact:
		return ProgressExact, nil
	default:
		return "", errors.NewInvalidRequestError("unknown progress mode %q (want step or exact)", s)
	}
}

// Percent returns the progress after completed of total units.
func (m ProgressMode) Percent(completed, total int) int {
	if total <= 0 || completed >= total {
		return 100
	}
	if completed <= 0 {
		return 0
	}
	if m == ProgressExact {
		return completed * 100 / total
	}
	return min(100, completed*(100/total))
}
