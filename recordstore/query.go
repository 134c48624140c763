// Package recordstore models filtered, ordered reads against the CRM record store.
//
// The owner directory and artefact containers describe what they need as a Query;
// a Querier executes it. SQLQuerier is the SQLite-backed implementation used by the
// pam CLI.
package recordstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/teranos/pam/errors"
)

// Operator is a comparison used in a Condition.
type Operator string

const (
	Equal    Operator = "eq"
	NotEqual Operator = "ne"
	In       Operator = "in"
	NotIn    Operator = "not-in"
)

// JoinOperator selects link semantics. Only inner joins are needed today.
type JoinOperator string

const (
	JoinInner JoinOperator = "inner"
)

// Condition filters records on one field. All conditions of a query are ANDed.
type Condition struct {
	Field    string
	Operator Operator
	Values   []interface{}
}

// Link requires a related record to exist in Entity where Entity.To = root.From.
type Link struct {
	Entity string
	From   string
	To     string
	Join   JoinOperator
}

// Order sorts the result on one field.
type Order struct {
	Field      string
	Descending bool
}

// Query describes a read against one entity.
type Query struct {
	Entity     string
	Columns    []string
	Conditions []Condition
	Links      []Link
	Orders     []Order
	Distinct   bool
}

// Querier executes queries against the record store and returns records in order.
type Querier interface {
	Query(ctx context.Context, q Query) ([]Record, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, q Query) ([]Record, error)

// Query calls f(ctx, q).
func (f QuerierFunc) Query(ctx context.Context, q Query) ([]Record, error) {
	return f(ctx, q)
}

// Eq builds an equality condition.
func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Operator: Equal, Values: []interface{}{value}}
}

// Ne builds an inequality condition.
func Ne(field string, value interface{}) Condition {
	return Condition{Field: field, Operator: NotEqual, Values: []interface{}{value}}
}

// NotOneOf builds a NOT IN condition.
func NotOneOf(field string, values ...interface{}) Condition {
	return Condition{Field: field, Operator: NotIn, Values: values}
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks that every identifier is a plain lower-case name and that
// conditions carry the number of values their operator needs.
func (q Query) Validate() error {
	if !identifier.MatchString(q.Entity) {
		return errors.NewInvalidRequestError("invalid entity name %q", q.Entity)
	}
	if len(q.Columns) == 0 {
		return errors.NewInvalidRequestError("query on %s selects no columns", q.Entity)
	}
	for _, c := range q.Columns {
		if !identifier.MatchString(c) {
			return errors.NewInvalidRequestError("invalid column %q on %s", c, q.Entity)
		}
	}
	for _, c := range q.Conditions {
		if !identifier.MatchString(c.Field) {
			return errors.NewInvalidRequestError("invalid condition field %q", c.Field)
		}
		switch c.Operator {
		case Equal, NotEqual:
			if len(c.Values) != 1 {
				return errors.NewInvalidRequestError("%s on %s needs exactly one value, got %d", c.Operator, c.Field, len(c.Values))
			}
		case In, NotIn:
			if len(c.Values) == 0 {
				return errors.NewInvalidRequestError("%s on %s needs at least one value", c.Operator, c.Field)
			}
		default:
			return errors.NewInvalidRequestError("unsupported operator %q", c.Operator)
		}
	}
	for _, l := range q.Links {
		for _, name := range []string{l.Entity, l.From, l.To} {
			if !identifier.MatchString(name) {
				return errors.NewInvalidRequestError("invalid link identifier %q", name)
			}
		}
		if l.Join != "" && l.Join != JoinInner {
			return errors.NewInvalidRequestError("unsupported join %q", l.Join)
		}
	}
	for _, o := range q.Orders {
		if !identifier.MatchString(o.Field) {
			return errors.NewInvalidRequestError("invalid order field %q", o.Field)
		}
	}
	return nil
}

// String renders a compact description for logs.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Entity)
	for _, c := range q.Conditions {
		fmt.Fprintf(&b, " %s %s %v", c.Field, c.Operator, c.Values)
	}
	for _, l := range q.Links {
		fmt.Fprintf(&b, " join %s", l.Entity)
	}
	for _, o := range q.Orders {
		dir := "asc"
		if o.Descending {
			dir = "desc"
		}
		fmt.Fprintf(&b, " order %s %s", o.Field, dir)
	}
	return b.String()
}
