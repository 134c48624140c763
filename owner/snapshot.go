package owner

import (
	"slices"
	"time"
)

// Snapshot is an immutable, ordered directory of owners: users, then teams, each
// in the order the store returned them. A new Snapshot replaces the previous one
// wholesale.
type Snapshot struct {
	owners   []Owner
	users    int
	loadedAt time.Time
}

var empty = &Snapshot{}

// Empty returns the snapshot with no owners.
func Empty() *Snapshot {
	return empty
}

// NewSnapshot merges users and teams into a kind-grouped snapshot. Name order
// comes from the store's queries (case-insensitive on the CRM) and is not
// re-sorted here. Entries with an ID already seen are dropped; the first
// occurrence wins.
func NewSnapshot(users, teams []Owner) *Snapshot {
	seen := make(map[string]struct{}, len(users)+len(teams))
	keep := func(in []Owner) []Owner {
		out := make([]Owner, 0, len(in))
		for _, o := range in {
			if _, dup := seen[o.ID]; dup {
				continue
			}
			seen[o.ID] = struct{}{}
			out = append(out, o)
		}
		return out
	}

	u := keep(users)
	t := keep(teams)
	return &Snapshot{
		owners:   append(u, t...),
		users:    len(u),
		loadedAt: time.Now(),
	}
}

// Len returns the number of owners.
func (s *Snapshot) Len() int {
	return len(s.owners)
}

// Owners returns a copy of all owners in directory order.
func (s *Snapshot) Owners() []Owner {
	return slices.Clone(s.owners)
}

// Users returns a copy of the user entries.
func (s *Snapshot) Users() []Owner {
	return slices.Clone(s.owners[:s.users])
}

// Teams returns a copy of the team entries.
func (s *Snapshot) Teams() []Owner {
	return slices.Clone(s.owners[s.users:])
}

// Find looks an owner up by ID.
func (s *Snapshot) Find(id string) (Owner, bool) {
	for _, o := range s.owners {
		if o.ID == id {
			return o, true
		}
	}
	return Owner{}, false
}

// LoadedAt is when the snapshot was built; zero for Empty.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}
