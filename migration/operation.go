// Package migration plans and runs batch operations over personal artefacts.
package migration

import "strings"

// Operation is the action applied to every selected artefact.
type Operation string

const (
	OpDelete    Operation = "delete"
	OpAssign    Operation = "assign"
	OpDuplicate Operation = "duplicate"
)

// Operations lists every operation in display order.
func Operations() []Operation {
	return []Operation{OpDuplicate, OpAssign, OpDelete}
}

// ParseOperation accepts the operation name in any case.
func ParseOperation(s string) (Operation, bool) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpDelete, OpAssign, OpDuplicate:
		return op, true
	default:
		return "", false
	}
}

func (o Operation) String() string { return string(o) }

// Label is the operator-facing name.
func (o Operation) Label() string {
	switch o {
	case OpDelete:
		return "Delete"
	case OpAssign:
		return "Assign"
	case OpDuplicate:
		return "Copy + Assign"
	default:
		return string(o)
	}
}

// NeedsTargets reports whether the operation requires target owners.
func (o Operation) NeedsTargets() bool {
	return o == OpAssign || o == OpDuplicate
}
