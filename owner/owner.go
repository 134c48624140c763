// Package owner builds the directory of users and teams that can hold personal artefacts.
package owner

import (
	"fmt"

	"github.com/teranos/pam/errors"
)

// Kind distinguishes user owners from team owners.
type Kind int

const (
	KindUser Kind = iota + 1
	KindTeam
)

// LogicalName returns the record-store entity name for the kind.
func (k Kind) LogicalName() string {
	switch k {
	case KindUser:
		return "systemuser"
	case KindTeam:
		return "team"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindTeam:
		return "team"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts "user"/"team" and the entity names "systemuser"/"team".
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "user", "systemuser":
		return KindUser, true
	case "team":
		return KindTeam, true
	default:
		return 0, false
	}
}

// Owner is a user or team that can own artefacts. Owners are values; copy freely.
type Owner struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

func (o Owner) String() string {
	return fmt.Sprintf("%s %q (%s)", o.Kind, o.Name, o.ID)
}

// MarshalText encodes the kind as "user" or "team".
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindUser && k != KindTeam {
		return nil, errors.Newf("invalid owner kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts anything ParseKind does.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return errors.Newf("invalid owner kind %q", string(b))
	}
	*k = parsed
	return nil
}
