package migration

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/owner"
)

func TestNewPlan(t *testing.T) {
	a := views(2)

	t.Run("delete ignores targets", func(t *testing.T) {
		p := NewPlan(Request{Operation: OpDelete, Artefacts: a, Targets: []owner.Owner{userB}})
		require.Equal(t, 2, p.Total())
		for i, u := range p.Units {
			assert.Equal(t, i, u.Index)
			assert.Nil(t, u.Target)
		}
	})

	t.Run("assign is target-major", func(t *testing.T) {
		p := NewPlan(Request{Operation: OpAssign, Artefacts: a, Targets: []owner.Owner{userB, teamC}})

		type pair struct{ Artefact, Target string }
		var got []pair
		for _, u := range p.Units {
			got = append(got, pair{u.Artefact.ID, u.Target.ID})
		}
		want := []pair{{"v1", "u-b"}, {"v2", "u-b"}, {"v1", "t-c"}, {"v2", "t-c"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("plan order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("targets are not aliased", func(t *testing.T) {
		targets := []owner.Owner{userB, teamC}
		p := NewPlan(Request{Operation: OpDuplicate, Artefacts: a, Targets: targets})
		targets[0].Name = "changed"
		assert.Equal(t, "Bea", p.Units[0].Target.Name)
	})

	t.Run("no targets means no units", func(t *testing.T) {
		assert.Equal(t, 0, NewPlan(Request{Operation: OpAssign, Artefacts: a}).Total())
	})
}

func TestProgressMode_Percent(t *testing.T) {
	tests := []struct {
		mode  ProgressMode
		total int
		want  []int
	}{
		{ProgressStep, 4, []int{25, 50, 75, 100}},
		{ProgressStep, 6, []int{16, 32, 48, 64, 80, 100}},
		{ProgressStep, 3, []int{33, 66, 100}},
		{ProgressStep, 1, []int{100}},
		{ProgressExact, 3, []int{33, 66, 100}},
		{ProgressExact, 7, []int{14, 28, 42, 57, 71, 85, 100}},
	}
	for _, tt := range tests {
		var got []int
		for k := 1; k <= tt.total; k++ {
			got = append(got, tt.mode.Percent(k, tt.total))
		}
		assert.Equal(t, tt.want, got, "%s/%d", tt.mode, tt.total)
	}

	t.Run("more than 100 units", func(t *testing.T) {
		assert.Equal(t, 0, ProgressStep.Percent(150, 250))
		assert.Equal(t, 100, ProgressStep.Percent(250, 250))
		assert.Equal(t, 60, ProgressExact.Percent(150, 250))
	})

	t.Run("parse", func(t *testing.T) {
		m, err := ParseProgressMode("")
		require.NoError(t, err)
		assert.Equal(t, ProgressStep, m)
		m, err = ParseProgressMode("exact")
		require.NoError(t, err)
		assert.Equal(t, ProgressExact, m)
		_, err = ParseProgressMode("smooth")
		assert.True(t, errors.IsInvalidRequestError(err))
	})
}

func TestOperation(t *testing.T) {
	op, ok := ParseOperation(" Duplicate ")
	require.True(t, ok)
	assert.Equal(t, OpDuplicate, op)
	assert.Equal(t, "Copy + Assign", op.Label())
	assert.True(t, op.NeedsTargets())
	assert.False(t, OpDelete.NeedsTargets())

	_, ok = ParseOperation("move")
	assert.False(t, ok)
}

func TestRequest_Validate(t *testing.T) {
	one := views(1)
	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"no operation", Request{Source: source, Artefacts: one}, false},
		{"no source", Request{Operation: OpDelete, Artefacts: one}, false},
		{"no artefacts", Request{Operation: OpDelete, Source: source}, false},
		{"assign without targets", Request{Operation: OpAssign, Source: source, Artefacts: one}, false},
		{"duplicate without targets", Request{Operation: OpDuplicate, Source: source, Artefacts: one}, false},
		{"delete without targets", Request{Operation: OpDelete, Source: source, Artefacts: one}, true},
		{"assign", Request{Operation: OpAssign, Source: source, Artefacts: one, Targets: []owner.Owner{teamC}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsInvalidRequestError(err), "got %v", err)
		})
	}
}

func TestUnitString(t *testing.T) {
	a := artefact.Artefact{ID: "v1", Name: "Open cases"}
	assert.Equal(t, "delete Open cases (v1)", Unit{Operation: OpDelete, Artefact: a}.String())
	assert.Equal(t, "assign Open cases (v1) -> Claims", Unit{Operation: OpAssign, Artefact: a, Target: &teamC}.String())
}
