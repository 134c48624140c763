// Package artefact models personal artefacts and the per-type containers that
// query and mutate them.
package artefact

// Type identifies an artefact kind. The set is closed.
type Type string

const (
	TypeUserQuery              Type = "userquery"
	TypeUserForm               Type = "userform"
	TypeUserQueryVisualization Type = "userqueryvisualization"
)

var types = []Type{TypeUserQuery, TypeUserForm, TypeUserQueryVisualization}

var labels = map[Type]string{
	TypeUserQuery:              "Personal Views",
	TypeUserForm:               "Personal Dashboards",
	TypeUserQueryVisualization: "Personal Visualizations",
}

// Types returns every artefact type in display order.
func Types() []Type {
	out := make([]Type, len(types))
	copy(out, types)
	return out
}

// ParseType returns the Type for s, or false if s is not one of the closed set.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, t.Valid()
}

// Valid reports whether t is a member of the closed set.
func (t Type) Valid() bool {
	_, ok := labels[t]
	return ok
}

// Label is the operator-facing name, e.g. "Personal Views".
func (t Type) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return string(t)
}

func (t Type) String() string { return string(t) }
